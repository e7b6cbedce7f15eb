package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"order-bot/project/infrastructure/httpsec"

	"github.com/spf13/cobra"
)

// newSignInitDataCmd はローカル検証用の署名済み initData を出力するコマンドです
// 例: BOT_TOKEN=... order-bot sign-init-data --field auth_date=1700000000 --field 'user={"id":1}'
func newSignInitDataCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "sign-init-data",
		Short: "BOT_TOKEN で署名した initData を出力します",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token := os.Getenv("BOT_TOKEN")
			if token == "" {
				return errors.New("BOT_TOKEN が設定されていません")
			}

			m, err := parseFields(fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), httpsec.SignInitData(m, []byte(token)))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "key=value 形式のフィールド（複数指定可）")
	return cmd
}

// parseFields は key=value の一覧を map に変換します
func parseFields(fields []string) (map[string]string, error) {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("不正なフィールド: %q（key=value 形式で指定してください）", f)
		}
		m[k] = v
	}
	return m, nil
}
