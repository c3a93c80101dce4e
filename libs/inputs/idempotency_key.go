package inputs

import (
	"context"
	"errors"
	"fmt"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// ErrKeyNotUUID - the supplied idempotency key is not a uuid
var ErrKeyNotUUID = errors.New("idempotency key is not a uuid")

// IdempotencyKey - client-chosen key that deduplicates POST submissions
type IdempotencyKey struct {
	id uuid.UUID
}

// UUID - get the UUID representation of the key
func (k IdempotencyKey) UUID() uuid.UUID {
	return k.id
}

// String - the canonical string form of the key
func (k IdempotencyKey) String() string {
	return k.id.String()
}

// NewIdempotencyKey - parse and validate a header value into a key
func NewIdempotencyKey(ctx context.Context, v string) (*IdempotencyKey, error) {
	var key = new(IdempotencyKey)
	if err := DecodeAndValidate(ctx, key, []byte(v)); err != nil {
		return nil, ErrKeyNotUUID
	}
	return key, nil
}

// Validate - implementation of validatable interface
func (k *IdempotencyKey) Validate(ctx context.Context) error {
	return nil
}

// Decode - implementation of decodable interface
func (k *IdempotencyKey) Decode(ctx context.Context, v []byte) error {
	if len(v) == 0 || !govalidator.IsUUIDv4(string(v)) {
		return fmt.Errorf("idempotency key is not a uuidv4: %x", v)
	}

	u, err := uuid.Parse(string(v))
	if err != nil {
		return fmt.Errorf("unable to parse idempotency key: %x", v)
	}
	k.id = u
	return nil
}
