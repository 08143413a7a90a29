package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller did not set one so rows get an id
// even on databases without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
