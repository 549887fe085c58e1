package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/session-gateway/internal/business"
	"github.com/openkcm/session-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Session Gateway housekeeping job",
		"Session Gateway housekeeping job purges expired credential records from SQL credential stores.",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
