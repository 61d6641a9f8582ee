package staffrepo

import (
	"testing"

	"github.com/coregym/member-card-api/internal/adapters/contracttest"
	"github.com/coregym/member-card-api/internal/adapters/postgres/testutil"
	staffrepoport "github.com/coregym/member-card-api/internal/ports/out/staffrepo"
)

func TestContract_PostgresStaffRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunStaffRepo(t, func(t *testing.T) (staffrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
