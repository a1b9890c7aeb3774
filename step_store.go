package authflow

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stepKeyPrefix       = "afs"
	stepRecordVersionV1 = 1
)

const (
	stepKindSignIn byte = iota + 1
	stepKindForgot
	stepKindResetCode
	stepKindNewPassword
	stepKindSignUp
	stepKindAwaitingVerification
)

var (
	errStepRecordCorrupt = errors.New("step record corrupt")
	errStepRedisFailure  = errors.New("step store redis failure")
)

// stepStore parks a form's current step in Redis so another process can pick
// the flow up mid-dance. Records are TTL-bounded and advisory: a missing or
// corrupt record just means the form starts over.
type stepStore struct {
	redis  *redis.Client
	prefix string
}

func newStepStore(redisClient *redis.Client, prefix string) *stepStore {
	if prefix == "" {
		prefix = stepKeyPrefix
	}
	return &stepStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *stepStore) key(formID string) string {
	return s.prefix + ":" + formID
}

func (s *stepStore) Save(ctx context.Context, formID string, step Step, ttl time.Duration) error {
	encoded, err := encodeStepRecord(step)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(formID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errStepRedisFailure, err)
	}

	return nil
}

// Load returns the parked step for formID. Corrupt and version-mismatched
// records report [ErrStepNotFound], same as expiry: the caller cannot act on
// either beyond restarting the flow.
func (s *stepStore) Load(ctx context.Context, formID string) (Step, error) {
	data, err := s.redis.Get(ctx, s.key(formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStepNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStepRedisFailure, err)
	}

	step, err := decodeStepRecord(data)
	if err != nil {
		return nil, ErrStepNotFound
	}
	return step, nil
}

func (s *stepStore) Clear(ctx context.Context, formID string) error {
	if err := s.redis.Del(ctx, s.key(formID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errStepRedisFailure, err)
	}
	return nil
}

func encodeStepRecord(step Step) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(stepRecordVersionV1)

	var kind byte
	var email, code string

	switch s := step.(type) {
	case StepSignIn:
		kind = stepKindSignIn
	case StepForgot:
		kind = stepKindForgot
		email = s.Email
	case StepResetCode:
		kind = stepKindResetCode
		email = s.Email
	case StepNewPassword:
		kind = stepKindNewPassword
		email = s.Email
		code = s.Code
	case StepSignUp:
		kind = stepKindSignUp
	case StepAwaitingVerification:
		kind = stepKindAwaitingVerification
		email = s.Email
	default:
		return nil, errors.New("unknown step kind")
	}

	buf.WriteByte(kind)
	if err := writeStepString(&buf, email); err != nil {
		return nil, err
	}
	if err := writeStepString(&buf, code); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeStepRecord(data []byte) (Step, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errStepRecordCorrupt
	}
	if version != stepRecordVersionV1 {
		return nil, errStepRecordCorrupt
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, errStepRecordCorrupt
	}

	email, err := readStepString(reader)
	if err != nil {
		return nil, errStepRecordCorrupt
	}
	code, err := readStepString(reader)
	if err != nil {
		return nil, errStepRecordCorrupt
	}

	switch kind {
	case stepKindSignIn:
		return StepSignIn{}, nil
	case stepKindForgot:
		return StepForgot{Email: email}, nil
	case stepKindResetCode:
		return StepResetCode{Email: email}, nil
	case stepKindNewPassword:
		return StepNewPassword{Email: email, Code: code}, nil
	case stepKindSignUp:
		return StepSignUp{}, nil
	case stepKindAwaitingVerification:
		return StepAwaitingVerification{Email: email}, nil
	default:
		return nil, errStepRecordCorrupt
	}
}

func writeStepString(buf *bytes.Buffer, value string) error {
	if len(value) > 65535 {
		return errors.New("step record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(value))); err != nil {
		return err
	}
	buf.WriteString(value)
	return nil
}

func readStepString(reader *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return "", err
	}

	value := make([]byte, length)
	if _, err := io.ReadFull(reader, value); err != nil {
		return "", err
	}
	return string(value), nil
}
