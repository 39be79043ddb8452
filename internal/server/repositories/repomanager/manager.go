// Package repomanager ties the repositories together: a factory interface
// services depend on (so transactional and test variants can be swapped in)
// and the PostgreSQL implementation with connection and migration helpers.
package repomanager

import (
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/dbx"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/messages"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/resources"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/users"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/verificationcodes"
)

// RepositoryManager hands out repositories bound to the given DBTX, which
// may be the shared *sql.DB or a transaction from dbx.WithTx.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Resources(db dbx.DBTX) resources.Repository
	Messages(db dbx.DBTX) messages.Repository
	VerificationCodes(db dbx.DBTX) verificationcodes.Repository
}
