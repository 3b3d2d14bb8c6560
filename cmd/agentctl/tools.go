package main

import (
	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/internal/tools/calculator"
	"github.com/nexusrun/agentcore/internal/tools/database"
	"github.com/nexusrun/agentcore/internal/tools/datetime"
	"github.com/nexusrun/agentcore/internal/tools/filesystem"
	httptool "github.com/nexusrun/agentcore/internal/tools/http"
)

// toolOptions collects the flags that gate the sandboxed tools. calculator
// and datetime are always registered; filesystem/database/http only turn
// on when their required configuration is non-empty.
type toolOptions struct {
	allowedPaths  []string
	maxFileSize   int64
	readOnlyFS    bool
	dbDSN         string
	allowedTables []string
	readOnlyDB    bool
	allowedHosts  []string
}

// buildTools registers the built-in tools selected by opts into reg,
// returning a cleanup func that closes anything with a lifecycle (the
// database connection).
func buildTools(reg *agent.ToolRegistry, opts toolOptions) (func(), error) {
	reg.Register(calculator.New())
	reg.Register(datetime.New(nil))

	if len(opts.allowedPaths) > 0 {
		reg.Register(filesystem.New(filesystem.Config{
			AllowedPaths: opts.allowedPaths,
			MaxFileSize:  opts.maxFileSize,
			ReadOnly:     opts.readOnlyFS,
		}))
	}

	if len(opts.allowedHosts) > 0 {
		reg.Register(httptool.New(httptool.Config{
			AllowedHosts:      opts.allowedHosts,
			RequestsPerSecond: 2,
			Burst:             4,
		}))
	}

	cleanup := func() {}
	if opts.dbDSN != "" {
		dbTool, err := database.New(database.Config{
			DSN:           opts.dbDSN,
			AllowedTables: opts.allowedTables,
			ReadOnly:      opts.readOnlyDB,
		})
		if err != nil {
			return cleanup, err
		}
		reg.Register(dbTool)
		cleanup = func() { _ = dbTool.Close() }
	}

	return cleanup, nil
}
