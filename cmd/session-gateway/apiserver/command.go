package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/session-gateway/internal/business"
	"github.com/openkcm/session-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Session Gateway API server",
		"Session Gateway API server serves the auth endpoints and proxies gated routes to the application.",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
