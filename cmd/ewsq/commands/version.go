package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set at build time via ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "dev"
	buildTime    = "unknown"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show ewsq version information",
	Long:  `Display version, build time, commit hash, and platform information for the ewsq binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		info := buildInfo{
			Version:   buildVersion,
			Commit:    buildCommit,
			BuildTime: buildTime,
			GoVersion: runtime.Version(),
			Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		}

		if jsonOutput {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error formatting JSON: %v\n", err)
				return
			}
			fmt.Println(string(output))
			return
		}
		fmt.Printf("ewsq %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildTime)
		fmt.Printf("Platform: %s\n", info.Platform)
		fmt.Printf("Go: %s\n", info.GoVersion)
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
