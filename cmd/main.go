package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "opengewe",
		Short:         "Gewe 网关的回调接收与任务分发服务",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"配置文件路径，缺省时依次查找 $GEWE_CONFIG、main_config.toml、config.toml")

	root.AddCommand(
		newServeCommand(&configPath),
		newConfigCommand(&configPath),
		newDevicesCommand(&configPath),
	)
	return root
}
