package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/device"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/ioc"
	"github.com/spf13/cobra"
)

func loadConfig(path string) (config.Config, string, error) {
	resolved, err := config.Resolve(path)
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return config.Config{}, resolved, fmt.Errorf("加载配置 %s 失败: %w", resolved, err)
	}
	return cfg, resolved, nil
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动回调服务和任务 worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := ioc.InitLogger(cfg.Logging)
			app, err := ioc.InitApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return errors.Join(app.Run(ctx), app.Close())
		},
	}
}

func newConfigCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件相关操作",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "校验配置文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			cmd.Printf("%s 校验通过，共 %d 个设备，队列模式 %s\n", path, len(cfg.Devices), cfg.Queue.Type)
			return nil
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "输出生效的配置，token 已脱敏",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg.Redacted(), format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVarP(&format, "format", "f", config.FormatTOML, "输出格式 toml|yaml")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "生成配置文件模板",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s 已存在，使用 --force 覆盖", path)
			}
			if err := config.Save(path, templateConfig()); err != nil {
				return err
			}
			cmd.Printf("已生成 %s，请修改设备的 app_id 和 token\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的文件")

	cmd.AddCommand(check, show, initCmd)
	return cmd
}

func templateConfig() config.Config {
	cfg := config.Default()
	cfg.Devices = map[string]config.DeviceConfig{
		domain.DefaultDeviceID: {
			Name:        "默认设备",
			BaseURL:     "http://api.geweapi.com/gewe/v2/api",
			CallbackURL: "http://127.0.0.1:5433/callback",
			AppID:       "wx_xxxxxxxxxxxx",
			Token:       "your_token_here",
		},
	}
	return cfg
}

func newDevicesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "列出配置的设备",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			registry, err := device.NewRegistry(cfg.Devices)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODE\tAPP_ID\tTOKEN\tCALLBACK")
			for _, d := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Mode, d.AppID, d.MaskedToken(), d.CallbackPath())
			}
			return w.Flush()
		},
	}
}
