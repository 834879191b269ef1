package database

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ridoystarlord/evolve/utils"
)

var (
	shared     *Postgres
	sharedOnce sync.Once
	sharedErr  error
)

// Get returns the shared database handle for the process, dialed from
// DATABASE_URL on first use.
func Get(ctx context.Context) (*Postgres, error) {
	sharedOnce.Do(func() {
		utils.LoadEnv()
		url := os.Getenv("DATABASE_URL")
		if url == "" {
			sharedErr = fmt.Errorf("DATABASE_URL not set in environment")
			return
		}
		shared, sharedErr = Connect(ctx, url)
	})
	return shared, sharedErr
}

// CloseShared closes the shared handle on application shutdown.
func CloseShared() {
	if shared != nil {
		shared.Close()
	}
}
