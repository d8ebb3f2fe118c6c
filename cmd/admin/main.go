package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/cadete/internal/admin"
	"github.com/dmitrijs2005/cadete/internal/server"
	"github.com/dmitrijs2005/cadete/internal/server/auth"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/services"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx := context.Background()
	cfg := config.LoadConfig(args)

	logger, closeLog, err := server.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	st, err := server.OpenStorage(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer st.Close()

	svc := services.NewAdminService(st.DB, st.Manager, auth.NewArgon2Hasher(), logger)
	if err := admin.New(svc, os.Stdout).Run(ctx, args); err != nil {
		if !errors.Is(err, admin.ErrUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}
