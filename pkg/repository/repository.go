package repository

import (
	"github.com/m-mizutani/goerr/v2"
)

// ErrRunNotFound is returned when a run does not exist in the journal
var ErrRunNotFound = goerr.New("run not found")

const defaultListLimit = 100

// DefaultDatabaseID is the Firestore database used when none is configured
const DefaultDatabaseID = "(default)"
