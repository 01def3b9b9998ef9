package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/ephysio/epictree/internal/analysis"
	"github.com/ephysio/epictree/internal/epoch"
	"github.com/ephysio/epictree/internal/export"
	"github.com/ephysio/epictree/internal/retrieval"
	"github.com/ephysio/epictree/internal/sidefile"
	"github.com/ephysio/epictree/internal/splitter"
	"github.com/ephysio/epictree/internal/tree"
)

// shell is the interactive tree browser. It keeps a cursor into the current
// tree; "rules" rebuilds the tree from the same store and moves the cursor
// back to the new root.
type shell struct {
	store       *epoch.RecordStore
	root        *tree.Node
	cur         *tree.Node
	svc         *retrieval.Service
	analyzer    *analysis.Analyzer
	datasetPath string

	// dirty is set by selection changes so main can offer a save on exit.
	dirty bool
	quit  bool
}

func newShell(store *epoch.RecordStore, root *tree.Node, svc *retrieval.Service, analyzer *analysis.Analyzer, datasetPath string) *shell {
	return &shell{
		store:       store,
		root:        root,
		cur:         root,
		svc:         svc,
		analyzer:    analyzer,
		datasetPath: datasetPath,
	}
}

// run drives the shell until exit. With a terminal on stdin it uses the
// completing prompt; otherwise it reads plain lines so piped scripts work.
func (s *shell) run() {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		s.runPlain()
		return
	}

	p := prompt.New(
		s.execute,
		s.complete,
		prompt.OptionTitle("epict"),
		prompt.OptionLivePrefix(s.livePrefix),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return s.quit
		}),
	)
	p.Run()
}

func (s *shell) runPlain() {
	scanner := bufio.NewScanner(os.Stdin)
	for !s.quit && scanner.Scan() {
		s.execute(scanner.Text())
	}
}

func (s *shell) livePrefix() (string, bool) {
	return s.cur.PathString("/") + " > ", true
}

// =============================================================================
// Command Dispatch
// =============================================================================

func (s *shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		s.printHelp()
	case "ls":
		s.cmdList()
	case "cd":
		s.cmdChdir(args)
	case "pwd":
		fmt.Println(s.cur.PathString("/"))
	case "select":
		s.cmdSelect(args, true)
	case "deselect":
		s.cmdSelect(args, false)
	case "stats":
		s.cmdStats()
	case "summary":
		s.cmdSummary(args)
	case "rules":
		s.cmdRules(args)
	case "save":
		s.cmdSave()
	case "export":
		s.cmdExport(args)
	case "counts":
		s.cmdCounts(args)
	case "exit", "quit":
		s.quit = true
	default:
		fmt.Printf("unknown command %q (try help)\n", cmd)
	}
}

func (s *shell) printHelp() {
	fmt.Print(`commands:
  ls                 list children of the current node (or epochs at a leaf)
  cd <value|n|..|/>  move to a child by value or 1-based index, up, or root
  pwd                print the current path
  select [-r]        flag epochs under the current node as selected
  deselect [-r]      clear the selection flag under the current node
  stats              epoch and selection counts at the current node
  summary <stream>   waveform summary for the selected epochs here
  rules <a,b,c>      regroup the tree with new rules
  save               write a selection side file now
  export <path>      write epoch metadata to a parquet file
  counts <column>    group-by counts over an export (identity_key, cell_type, ...)
  exit               leave the shell
`)
}

// =============================================================================
// Navigation Commands
// =============================================================================

func (s *shell) cmdList() {
	if s.cur.IsLeaf() {
		for i, e := range s.cur.Epochs() {
			mark := " "
			if e.Selected {
				mark = "*"
			}
			fmt.Printf("%s %3d  %s  %s\n", mark, i+1,
				e.Attributes.GetString("start_time"), e.IdentityKey())
		}
		return
	}

	for i := 1; i <= s.cur.ChildrenLen(); i++ {
		child, _ := s.cur.ChildAt(i)
		fmt.Printf("%3d  %-30s %d/%d selected\n", i,
			child.DisplayValue(), child.SelectedCount(), child.EpochCount())
	}
}

func (s *shell) cmdChdir(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: cd <value|n|..|/>")
		return
	}

	switch args[0] {
	case "/":
		s.cur = s.root
		return
	case "..":
		up, err := s.cur.ParentAt(1)
		if err != nil {
			fmt.Println("already at the root")
			return
		}
		s.cur = up
		return
	}

	if i, err := strconv.Atoi(args[0]); err == nil {
		child, err := s.cur.ChildAt(i)
		if err != nil {
			fmt.Printf("no child %d (have %d)\n", i, s.cur.ChildrenLen())
			return
		}
		s.cur = child
		return
	}

	if child := s.childByDisplay(s.cur, args[0]); child != nil {
		s.cur = child
		return
	}
	fmt.Printf("no child %q\n", args[0])
}

func (s *shell) childByDisplay(n *tree.Node, value string) *tree.Node {
	for i := 1; i <= n.ChildrenLen(); i++ {
		child, _ := n.ChildAt(i)
		if child.DisplayValue() == value {
			return child
		}
	}
	return nil
}

// =============================================================================
// Selection and Analysis Commands
// =============================================================================

func (s *shell) cmdSelect(args []string, value bool) {
	recursive := len(args) == 1 && args[0] == "-r"
	s.cur.SetSelected(value, recursive)
	s.dirty = true
	fmt.Printf("%d/%d selected under %s\n",
		s.cur.SelectedCount(), s.cur.EpochCount(), s.cur.DisplayValue())
}

func (s *shell) cmdStats() {
	fmt.Printf("path:     %s\n", s.cur.PathString("/"))
	fmt.Printf("depth:    %d\n", s.cur.Depth())
	fmt.Printf("children: %d\n", s.cur.ChildrenLen())
	fmt.Printf("epochs:   %d (%d selected)\n",
		s.cur.EpochCount(), s.cur.SelectedCount())
}

func (s *shell) cmdSummary(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: summary <stream>")
		return
	}
	stream := args[0]

	summary, err := s.analyzer.Summarize(s.cur, stream)
	if err != nil {
		fmt.Printf("summary failed: %v\n", err)
		return
	}
	if summary.IsEmpty() {
		fmt.Printf("no %q samples under %s\n", stream, s.cur.DisplayValue())
		return
	}

	fmt.Printf("stream:   %s (%d records, %.0f Hz)\n",
		summary.Stream, summary.Records, summary.SampleRate)
	fmt.Printf("samples:  %d\n", summary.Count)
	fmt.Printf("min/avg/max: %.4g / %.4g / %.4g\n",
		summary.Min, summary.Avg, summary.Max)
	if summary.HasPercentiles {
		fmt.Printf("p50/p90/p95/p99: %.4g / %.4g / %.4g / %.4g\n",
			summary.P50, summary.P90, summary.P95, summary.P99)
	}
}

func (s *shell) cmdRules(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: rules <name,name,...> (see canonical rule names or use field paths)")
		return
	}

	names := strings.Split(args[0], ",")
	rules := make([]splitter.Rule, 0, len(names))
	for _, name := range names {
		rules = append(rules, splitter.Lookup(strings.TrimSpace(name)))
	}

	s.root = tree.Build(s.store, rules)
	s.cur = s.root
	fmt.Printf("regrouped by %s: %d epochs, %d selected\n",
		args[0], s.root.EpochCount(), s.root.SelectedCount())
}

// =============================================================================
// Persistence Commands
// =============================================================================

func (s *shell) cmdSave() {
	path := sidefile.GenerateFilename(s.datasetPath)
	if err := sidefile.Save(s.store, path); err != nil {
		fmt.Printf("save failed: %v\n", err)
		return
	}
	s.dirty = false
	fmt.Printf("wrote %s\n", path)
}

func (s *shell) cmdExport(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: export <path.parquet>")
		return
	}
	if err := export.WriteStore(s.store, args[0]); err != nil {
		fmt.Printf("export failed: %v\n", err)
		return
	}
	fmt.Printf("wrote %d rows to %s\n", s.store.Len(), args[0])
}

func (s *shell) cmdCounts(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: counts <column>")
		return
	}

	// Query over a throwaway export of the current store.
	path := filepath.Join(os.TempDir(), "epict-counts.parquet")
	if err := export.WriteStore(s.store, path); err != nil {
		fmt.Printf("export failed: %v\n", err)
		return
	}
	defer os.Remove(path)

	qs, err := export.NewQueryService(path)
	if err != nil {
		fmt.Printf("open query service: %v\n", err)
		return
	}
	defer qs.Close()

	counts, err := qs.CountByField(context.Background(), args[0])
	if err != nil {
		fmt.Printf("query failed: %v\n", err)
		return
	}
	for _, fc := range counts {
		fmt.Printf("%6d (%d selected)  %s\n", fc.Count, fc.Selected, fc.Value)
	}
}

// =============================================================================
// Completion
// =============================================================================

var commandSuggestions = []prompt.Suggest{
	{Text: "ls", Description: "list children or epochs"},
	{Text: "cd", Description: "move to a child, .. or /"},
	{Text: "pwd", Description: "print the current path"},
	{Text: "select", Description: "select epochs under this node"},
	{Text: "deselect", Description: "deselect epochs under this node"},
	{Text: "stats", Description: "counts at this node"},
	{Text: "summary", Description: "waveform summary for a stream"},
	{Text: "rules", Description: "regroup the tree"},
	{Text: "save", Description: "write a selection side file"},
	{Text: "export", Description: "write epoch metadata parquet"},
	{Text: "counts", Description: "group-by counts over an export"},
	{Text: "help", Description: "show commands"},
	{Text: "exit", Description: "leave the shell"},
}

func (s *shell) complete(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	fields := strings.Fields(text)

	// First word: the command itself.
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(text, " ")) {
		return prompt.FilterHasPrefix(commandSuggestions, d.GetWordBeforeCursor(), true)
	}

	switch fields[0] {
	case "cd":
		suggestions := []prompt.Suggest{
			{Text: "..", Description: "parent"},
			{Text: "/", Description: "root"},
		}
		for i := 1; i <= s.cur.ChildrenLen(); i++ {
			child, _ := s.cur.ChildAt(i)
			suggestions = append(suggestions, prompt.Suggest{
				Text: child.DisplayValue(),
				Description: fmt.Sprintf("%d/%d selected",
					child.SelectedCount(), child.EpochCount()),
			})
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)

	case "summary":
		return prompt.FilterHasPrefix(s.streamSuggestions(), d.GetWordBeforeCursor(), true)

	case "rules":
		suggestions := make([]prompt.Suggest, 0)
		for _, name := range splitter.Names() {
			suggestions = append(suggestions, prompt.Suggest{Text: name})
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)

	case "counts":
		columns := []prompt.Suggest{
			{Text: "cell_type"}, {Text: "cell_label"}, {Text: "protocol_name"},
			{Text: "group_label"}, {Text: "block_label"}, {Text: "exp_name"},
		}
		return prompt.FilterHasPrefix(columns, d.GetWordBeforeCursor(), true)

	case "select", "deselect":
		return prompt.FilterHasPrefix([]prompt.Suggest{
			{Text: "-r", Description: "recurse into children"},
		}, d.GetWordBeforeCursor(), true)
	}

	return nil
}

func (s *shell) streamSuggestions() []prompt.Suggest {
	seen := make(map[string]bool)
	var out []prompt.Suggest
	for _, e := range s.cur.AllEpochs(false) {
		for name := range e.Responses {
			if !seen[name] {
				seen[name] = true
				out = append(out, prompt.Suggest{Text: name})
			}
		}
	}
	return out
}
