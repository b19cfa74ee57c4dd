package main

import (
	"context"

	"eduassist-backend/cmd/sis-cli/commands"
	"eduassist-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "sis-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
