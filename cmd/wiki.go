package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"Lyra/core/mediawiki"

	"github.com/spf13/cobra"
)

var (
	wikiAPI        string
	wikiUser       string
	wikiDomain     string
	wikiNoRedirect bool
	wikiEditFile   string
	wikiSummary    string
	wikiTimeout    time.Duration
)

var wikiCmd = &cobra.Command{
	Use:   "wiki",
	Short: "Read and edit pages of a MediaWiki site",
}

// openWiki connects to the configured wiki, logging in when a user is set.
func openWiki(cmd *cobra.Command) (*mediawiki.Site, error) {
	api := wikiAPI
	if api == "" {
		api = cfg.WikiAPIURL
	}
	if api == "" {
		return nil, withCode(ExitUsage, errors.New("no wiki API URL (--api or WIKI_API_URL)"))
	}

	opts := []mediawiki.Option{mediawiki.WithTimeout(wikiTimeout)}
	user := wikiUser
	if user == "" {
		user = cfg.WikiUser
	}
	if user != "" {
		opts = append(opts, mediawiki.WithLogin(user, cfg.WikiPassword, wikiDomain))
	}

	site, err := mediawiki.NewSite(cmd.Context(), api, opts...)
	if errors.Is(err, mediawiki.ErrInvalidURL) {
		return nil, withCode(ExitUsage, err)
	}
	return site, err
}

var wikiGetCmd = &cobra.Command{
	Use:   "get TITLE",
	Short: "Print the wikitext of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := openWiki(cmd)
		if err != nil {
			return err
		}
		page, err := site.Page(cmd.Context(), args[0], !wikiNoRedirect)
		if err != nil {
			if errors.Is(err, mediawiki.ErrMissingPage) {
				return withCode(ExitNoAction, err)
			}
			return err
		}
		if page.RedirectedFrom != "" {
			fmt.Fprintf(os.Stderr, "(redirected from %s)\n", page.RedirectedFrom)
		}
		content, err := page.Content(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(content)
		return nil
	},
}

var wikiEditCmd = &cobra.Command{
	Use:   "edit TITLE",
	Short: "Replace the text of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if wikiEditFile != "-" {
			f, err := os.Open(wikiEditFile)
			if err != nil {
				return withCode(ExitIOError, err)
			}
			defer f.Close()
			r = f
		}
		text, err := io.ReadAll(r)
		if err != nil {
			return withCode(ExitIOError, err)
		}

		site, err := openWiki(cmd)
		if err != nil {
			return err
		}
		res, err := site.Edit(cmd.Context(), args[0], string(text), wikiSummary)
		if err != nil {
			return err
		}
		if res.NoChange {
			fmt.Printf("%s: no change\n", res.Title)
			return nil
		}
		fmt.Printf("%s: revision %d\n", res.Title, res.NewRevID)
		return nil
	},
}

func init() {
	wikiCmd.PersistentFlags().StringVar(&wikiAPI, "api", "", "api.php URL (default WIKI_API_URL)")
	wikiCmd.PersistentFlags().StringVarP(&wikiUser, "user", "u", "", "login name (default WIKI_USER)")
	wikiCmd.PersistentFlags().StringVar(&wikiDomain, "domain", "", "login domain")
	wikiCmd.PersistentFlags().DurationVar(&wikiTimeout, "timeout", 30*time.Second, "timeout of each API request")
	wikiGetCmd.Flags().BoolVar(&wikiNoRedirect, "no-redirect", false, "do not follow redirects")
	wikiEditCmd.Flags().StringVarP(&wikiEditFile, "file", "f", "-", "file with the new text, - for stdin")
	wikiEditCmd.Flags().StringVarP(&wikiSummary, "summary", "s", "", "edit summary")

	wikiCmd.AddCommand(wikiGetCmd, wikiEditCmd)
	rootCmd.AddCommand(wikiCmd)
}
