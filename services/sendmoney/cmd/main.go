// send-money — перевод денег заключённым: оплата картой через платёжный шлюз,
// реквизиты банковского перевода и плановая сверка незавершённых платежей.
//
//	send-money serve          HTTP API
//	send-money sweep          сверка по расписанию (SWEEP_INTERVAL)
//	send-money sweep --once   один проход сверки (cron)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "send-money",
		Short:         "Send money to someone in prison",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "путь к .env файлу")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
