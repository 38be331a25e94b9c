package models

import (
	"database/sql/driver"
	"errors"
)

// JSONB is a JSON object column kept as the bytes the database returned.
type JSONB []byte

var emptyObject = []byte("{}")

func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return string(emptyObject), nil
	}
	return string(j), nil
}

func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONB(nil), v...)
	case string:
		*j = JSONB(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return nil
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return emptyObject, nil
	}
	return j, nil
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
