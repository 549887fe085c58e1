package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/session-gateway/internal/business"
	"github.com/openkcm/session-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Session Gateway migrations",
		"Applies the credential record migrations when the credential store is postgres.",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
