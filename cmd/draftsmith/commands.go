package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/config"
	"github.com/kalambet/draftsmith/internal/generator"
	"github.com/kalambet/draftsmith/internal/intent"
	"github.com/kalambet/draftsmith/internal/profile"
	"github.com/kalambet/draftsmith/internal/samples"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- draft ---

var draftCmd = &cobra.Command{
	Use:   "draft [topic]",
	Short: "Draft an email",
	Long: `Draft an email from a topic, a template, or both.

Examples:
  draftsmith draft "Meeting request for the Q3 review" --recipient jane.doe@acme.com
  draftsmith draft --template casual_check_in --context "the new office"
  draftsmith draft "Partner intro" --template partner_intro --var company=Acme`,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		recipient, _ := cmd.Flags().GetString("recipient")
		extra, _ := cmd.Flags().GetString("context")
		templateID, _ := cmd.Flags().GetString("template")
		category, _ := cmd.Flags().GetString("category")
		rawVars, _ := cmd.Flags().GetStringArray("var")
		save, _ := cmd.Flags().GetBool("save")
		noInteractive, _ := cmd.Flags().GetBool("no-interactive")
		asJSON, _ := cmd.Flags().GetBool("json")

		vars, err := parseVars(rawVars)
		if err != nil {
			return err
		}
		req := generator.Request{
			UserID:     a.userID,
			Topic:      strings.Join(args, " "),
			Recipient:  recipient,
			Context:    extra,
			TemplateID: templateID,
			Category:   category,
			Vars:       vars,
			Save:       save,
		}

		var asker intent.Asker
		if !noInteractive && stdinIsTerminal() {
			asker = newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		}

		printStep("Drafting with %s (%s)...", a.cfg.Completion.Model, a.cfg.Completion.Backend)
		email, err := a.generator.Generate(cmd.Context(), req, asker)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, email)
		}
		fmt.Fprintf(out, "Subject: %s\n\n%s\n", email.Subject, email.Body)

		note := "template " + email.TemplateID
		if email.StyleAdapted {
			note += ", adapted to your style"
		}
		printSuccess("Drafted %s email (%s)", email.Category, note)
		if save {
			printStatus("Saved", "%s", email.ID)
		}
		return nil
	}),
}

// parseVars turns key=value flags into template values.
func parseVars(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, apperr.New(apperr.InvalidRequest, "--var wants key=value, got %q", kv)
		}
		vars[k] = v
	}
	return vars, nil
}

func init() {
	draftCmd.Flags().String("recipient", "", "recipient name or address")
	draftCmd.Flags().String("context", "", "extra facts the email should mention")
	draftCmd.Flags().String("template", "", "template id (see: draftsmith template list)")
	draftCmd.Flags().String("category", "", "email category, e.g. business_formal")
	draftCmd.Flags().StringArray("var", nil, "template value as key=value (repeatable)")
	draftCmd.Flags().Bool("save", true, "keep the draft in the history")
	draftCmd.Flags().Bool("no-interactive", false, "never ask clarifying questions")
	draftCmd.Flags().Bool("json", false, "print the result as JSON")
}

// --- learn ---

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Learn your writing style",
}

var learnSamplesCmd = &cobra.Command{
	Use:   "samples <file-or-dir>...",
	Short: "Learn from emails you wrote",
	Long: `Learn from emails you wrote. Accepts .txt, .md, .eml, .html and .pdf
files or directories of them. A file may hold several emails separated by a
line of dashes (---).`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		loaded, err := samples.Load(cmd.Context(), args, samples.Options{Concurrency: concurrency})
		if err != nil {
			return err
		}
		for _, s := range loaded {
			if s.Err != nil {
				printWarning("skipping %s: %v", s.Path, s.Err)
			}
		}
		printStep("Learning from %d samples...", len(loaded))

		p, report, err := a.learner.LearnSamples(cmd.Context(), a.userID, samples.Texts(loaded))
		if err != nil {
			return err
		}

		printSuccess("Learned from %d samples, skipped %d", report.Applied, report.Skipped)
		for _, i := range report.SkippedIndexes {
			printStatus("Skipped", "%s (part %d)", loaded[i].Path, loaded[i].Part+1)
		}
		printSummary(profile.Summarize(p, a.style))
		return nil
	}),
}

var learnInteractiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Describe your style by answering a few questions",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		pr := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		s := pr.setup(cmd.Context())

		p, err := a.learner.ApplySetup(cmd.Context(), a.userID, s)
		if err != nil {
			return err
		}
		printSuccess("Style preferences saved for %s", a.userID)
		printSummary(profile.Summarize(p, a.style))
		return nil
	}),
}

func init() {
	learnSamplesCmd.Flags().Int("concurrency", 4, "files read at once")
	learnCmd.AddCommand(learnSamplesCmd)
	learnCmd.AddCommand(learnInteractiveCmd)
}

// --- template ---

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Browse and create templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		printTemplates(cmd.OutOrStdout(), a.catalog.List(category))
		warnSkipped(a.catalog)
		return nil
	}),
}

var templateSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search templates",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		printTemplates(cmd.OutOrStdout(), a.catalog.Search(strings.Join(args, " ")))
		return nil
	}),
}

var templatePreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Show a template rendered with placeholder values",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		t, err := a.catalog.Get(args[0])
		if err != nil {
			return err
		}
		r, err := a.catalog.Render(t, previewVars(t))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", colorize(styleBold, t.ID), colorize(styleFaint, t.Category))
		if t.Description != "" {
			fmt.Fprintln(out, t.Description)
		}
		fmt.Fprintf(out, "\nSubject: %s\n\n%s\n\n", r.Subject, r.Body)
		for _, v := range t.Variables {
			fmt.Fprintf(out, "  %-16s %-8s %s\n", v.Name, v.Fill, v.Description)
		}
		return nil
	}),
}

// previewVars fills every slot: the declared default where there is one,
// the slot name in brackets otherwise.
func previewVars(t catalog.Template) map[string]string {
	vars := make(map[string]string, len(t.Variables))
	for _, v := range t.Variables {
		if v.Default != nil {
			vars[v.Name] = *v.Default
			continue
		}
		vars[v.Name] = "[" + v.Name + "]"
	}
	return vars
}

var templateCreateCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Validate a template file and add it to the template directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		t, err := catalog.ReadFile(args[0])
		if err != nil {
			return err
		}
		path, err := catalog.WriteFile(cfg.Templates.Dir, t, force)
		if err != nil {
			return err
		}
		printSuccess("Template %s saved to %s", t.ID, path)
		return nil
	},
}

// warnSkipped reports custom templates that failed to load.
func warnSkipped(c *catalog.Catalog) {
	skipped := c.Skipped()
	if len(skipped) == 0 {
		return
	}
	printWarning("%d template file(s) skipped as invalid:", len(skipped))
	for _, f := range skipped {
		printStatus(f.Path, "%v", f.Err)
	}
}

func printTemplates(w io.Writer, ts []catalog.Template) {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No templates found.")
		return
	}
	for _, t := range ts {
		s := t.Summary()
		fmt.Fprintf(w, "%s  %s  %s\n", colorize(styleStep, s.ID), colorize(styleFaint, s.Category), s.Description)
	}
}

func init() {
	templateListCmd.Flags().String("category", "", "only templates of this category")
	templateCreateCmd.Flags().Bool("force", false, "replace an existing template file")
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateSearchCmd)
	templateCmd.AddCommand(templatePreviewCmd)
	templateCmd.AddCommand(templateCreateCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect learned style profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users with a style profile",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ids, err := a.profiles.List()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles yet. Try: draftsmith learn interactive")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}),
}

var profileShowCmd = &cobra.Command{
	Use:   "show [user]",
	Short: "Show a style profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id := a.userID
		if len(args) == 1 {
			id = args[0]
		}
		p, err := a.profiles.Get(id)
		if err != nil {
			return err
		}
		s := profile.Summarize(p, a.style)
		s.RecentLearning, err = a.store.LearningHistory(p.UserID, profile.RecentLearningLimit)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), s)
		}
		printSummary(s)
		return nil
	}),
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete [user]",
	Short: "Delete a style profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id := a.userID
		if len(args) == 1 {
			id = args[0]
		}
		if err := a.profiles.Delete(id); err != nil {
			return err
		}
		printSuccess("Deleted profile %s", id)
		return nil
	}),
}

func printSummary(s profile.Summary) {
	printStatus("User", "%s", s.UserID)
	printStatus("Samples", "%d (confidence %.0f%%)", s.SampleCount, s.Confidence*100)
	if s.Reliable {
		printStatus("Reliable", "yes, drafts use this style")
	} else {
		printStatus("Reliable", "not yet, drafts use template defaults")
	}
	printStatus("Formality", "%s", s.Formality)
	printStatus("Complexity", "%s", s.Complexity)
	printStatus("Directness", "%s", s.Directness)
	if s.Greeting != "" {
		printStatus("Greeting", "%s", s.Greeting)
	}
	if s.Closing != "" {
		printStatus("Closing", "%s", s.Closing)
	}
	if len(s.Phrases) > 0 {
		printStatus("Phrases", "%s", strings.Join(s.Phrases, "; "))
	}
	for _, e := range s.RecentLearning {
		printStatus("Learned", "%s  %s, %d applied, %d skipped",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Source, e.Applied, e.Skipped)
	}
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "print as JSON")
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved drafts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent drafts",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		drafts, err := a.store.ListDrafts(a.userID, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(drafts) == 0 {
			fmt.Fprintln(out, "No drafts found.")
			return nil
		}
		for _, d := range drafts {
			fmt.Fprintf(out, "%s  %s  %s\n",
				colorize(styleStep, shortID(d.ID)),
				d.CreatedAt.Local().Format("2006-01-02 15:04"),
				truncate(d.Subject, 60),
			)
		}
		return nil
	}),
}

// shortID keeps the first eight characters of a draft id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		d, err := a.store.GetDraft(args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), d)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n%s\n", d.Subject, d.Body)
		printStatus("Template", "%s (%s)", d.TemplateID, d.Category)
		printStatus("Created", "%s", d.CreatedAt.Local().Format("2006-01-02 15:04"))
		return nil
	}),
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of drafts to list")
	historyShowCmd.Flags().Bool("json", false, "print as JSON")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(styleBold, k.Key), k.Value)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n  %s\n", colorize(styleFaint, "file: "+config.FilePath()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configSetCmd.Long = "Set a configuration value.\n\nKeys:\n  " + strings.Join(config.ValidKeys(), "\n  ")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
