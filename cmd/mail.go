package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"Lyra/core/groupmail"

	"github.com/spf13/cobra"
)

var (
	mailSID  string
	mailJSON bool
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Extract group mails from saved webmail pages",
}

func openPage(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, withCode(ExitIOError, err)
	}
	return f, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var mailListCmd = &cobra.Command{
	Use:   "list FILE",
	Short: "List the mails of a group mail folder page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openPage(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		headers, err := groupmail.ParseGroupMails(r)
		if err != nil {
			return err
		}
		if mailJSON {
			return printJSON(headers)
		}
		for _, h := range headers {
			mark := " "
			if h.Unread {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, h)
			if mailSID != "" {
				fmt.Printf("  %s\n", h.URL(mailSID))
			}
		}
		return nil
	},
}

var mailReadCmd = &cobra.Command{
	Use:   "read FILE",
	Short: "Print the posts of a group mail thread page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openPage(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		posts, err := groupmail.ParseSingleGroupMail(r)
		if err != nil {
			return err
		}
		if mailJSON {
			return printJSON(posts)
		}
		for _, p := range posts {
			fmt.Printf("[%s%s] %s\n\n", p.Date, p.Time, p)
		}
		return nil
	},
}

func init() {
	mailCmd.PersistentFlags().BoolVar(&mailJSON, "json", false, "print JSON")
	mailListCmd.Flags().StringVar(&mailSID, "sid", "", "session id used to print reading URLs")

	mailCmd.AddCommand(mailListCmd, mailReadCmd)
	rootCmd.AddCommand(mailCmd)
}
