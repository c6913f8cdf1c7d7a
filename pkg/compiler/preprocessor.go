package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cdd/pkg/includefs"
)

// Macro is one macro-table entry : object-like macros have an
// empty Params list.
type Macro struct {
	IsFunctionLike bool
	Params         []string
	Body           string
}

// condFrame is one entry of the conditional-compilation stack.
type condFrame struct {
	Active       bool
	HasMatched   bool
	ParentActive bool
}

// PreprocessOptions configures include search / 6.
type PreprocessOptions struct {
	// SearchPaths are user "-I" directories, in the order given on the
	// command line; they are searched before CDD_INCLUDE_PATH.
	SearchPaths []string
}

// stdlibCandidates lists conventional locations the preprocessor probes,
// in order, for a bundled standard-library header directory. At most one
// existing standard-library directory is used.
var stdlibCandidates = []string{
	"/usr/lib/cdd/include",
	"/opt/cdd/include",
	"/usr/local/lib/cdd/include",
}

// Preprocessor owns macro and conditional state for one translation-unit
// run (the lifecycle note). It is not safe for reuse across runs;
// callers construct a fresh one per Preprocess call.
type Preprocessor struct {
	macros       map[string]*Macro
	conditionals []condFrame
	cache        *includefs.Cache
	includeStack map[string]bool // cycle guard for the current include chain
	searchDirs   []string        // fully resolved, in priority order
	diags        *Diagnostics
	out          strings.Builder
}

// Preprocess expands includes, macros, and directives in the file at path,
// returning the flattened text the Lexer will re-scan.
func Preprocess(path string, opts PreprocessOptions, diags *Diagnostics) (string, error) {
	pp := &Preprocessor{
		macros:       make(map[string]*Macro),
		cache:        includefs.New(),
		includeStack: make(map[string]bool),
		diags:        diags,
	}
	pp.searchDirs = buildSearchDirs(opts.SearchPaths)

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	pp.cache.AlreadyIncluded(abs)
	pp.includeStack[abs] = true
	if err := pp.run(string(src), filepath.Dir(abs)); err != nil {
		return "", err
	}
	delete(pp.includeStack, abs)
	if len(pp.conditionals) != 0 {
		return "", fmt.Errorf("unterminated #if/#ifdef at end of %s", path)
	}
	return pp.out.String(), nil
}

// buildSearchDirs assembles the include search order after the "as-is" and
// "current file directory" cases: user -I dirs, then CDD_INCLUDE_PATH,
// then at most one stdlib candidate, then /usr/local/include, /usr/include.
func buildSearchDirs(userDirs []string) []string {
	var dirs []string
	dirs = append(dirs, userDirs...)
	if env := os.Getenv("CDD_INCLUDE_PATH"); env != "" {
		dirs = append(dirs, strings.Split(env, ":")...)
	}
	if stdlib := os.Getenv("CDD_STDLIB_PATH"); stdlib != "" {
		dirs = append(dirs, stdlib)
	} else {
		for _, cand := range stdlibCandidates {
			if info, err := os.Stat(cand); err == nil && info.IsDir() {
				dirs = append(dirs, cand)
				break
			}
		}
	}
	dirs = append(dirs, "/usr/local/include", "/usr/include")
	return dirs
}

// run processes one file's text: line splicing, then a linear scan that
// dispatches directive lines and accumulates runs of ordinary code between
// them. Runs are flushed through macro expansion as a whole so a
// function-like invocation spanning several source lines still resolves
// (treating a maximal run of non-directive lines as one expansion unit is
// the natural reading of "expand macros in normal lines").
func (pp *Preprocessor) run(src string, baseDir string) error {
	lines := spliceLines(src)

	var run []string
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		text := strings.Join(run, "\n") + "\n"
		expanded, err := pp.expandMacros(text)
		if err != nil {
			return err
		}
		pp.out.WriteString(expanded)
		run = run[:0]
		return nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if err := flush(); err != nil {
				return err
			}
			if err := pp.directive(trimmed, baseDir); err != nil {
				return err
			}
			continue
		}
		if !pp.active() {
			continue
		}
		run = append(run, line)
	}
	return flush()
}

// active reports whether code at the current nesting level should be kept.
// An empty stack means top level, always active.
func (pp *Preprocessor) active() bool {
	if len(pp.conditionals) == 0 {
		return true
	}
	return pp.conditionals[len(pp.conditionals)-1].Active
}

// spliceLines joins backslash-continued physical lines into logical lines
// before any other processing sees them.
func spliceLines(src string) []string {
	raw := strings.Split(src, "\n")
	// A final newline terminates the last line; it does not start another.
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}
	var out []string
	var pending strings.Builder
	for _, line := range raw {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasSuffix(trimmed, "\\") {
			pending.WriteString(strings.TrimSuffix(trimmed, "\\"))
			pending.WriteByte('\n') // keep line count stable for diagnostics
			continue
		}
		pending.WriteString(trimmed)
		out = append(out, pending.String())
		pending.Reset()
	}
	if pending.Len() > 0 {
		out = append(out, pending.String())
	}
	return out
}

func (pp *Preprocessor) directive(line string, baseDir string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	word, arg := splitWord(rest)

	// Conditional directives are dispatched even inside an inactive branch
	// so nested #if tracks depth correctly .
	switch word {
	case "ifdef", "ifndef", "if":
		return pp.pushConditional(word, arg)
	case "elif":
		return pp.handleElif(arg)
	case "else":
		return pp.handleElse()
	case "endif":
		return pp.handleEndif()
	}

	if !pp.active() {
		return nil
	}

	switch word {
	case "include":
		return pp.handleInclude(arg, baseDir)
	case "define":
		return pp.handleDefine(arg)
	case "undef":
		delete(pp.macros, strings.TrimSpace(arg))
		return nil
	case "pragma", "error", "warning", "line":
		// Recognized but inert: none of these affect the translation unit's
		// text under this spec's scope.
		return nil
	case "":
		return nil // bare '#' on its own line, a legal null directive
	default:
		return fmt.Errorf("unknown preprocessor directive #%s", word)
	}
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && !isSpaceByte(s[i]) {
		i++
	}
	word = s[:i]
	rest = strings.TrimSpace(s[i:])
	return
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' }

func (pp *Preprocessor) pushConditional(kind, arg string) error {
	parentActive := pp.active()
	var active bool
	switch kind {
	case "ifdef":
		_, ok := pp.macros[strings.TrimSpace(arg)]
		active = ok
	case "ifndef":
		_, ok := pp.macros[strings.TrimSpace(arg)]
		active = !ok
	case "if":
		v, err := pp.evalDirectiveExpr(arg)
		if err != nil {
			return err
		}
		active = v != 0
	}
	pp.conditionals = append(pp.conditionals, condFrame{
		Active:       parentActive && active,
		HasMatched:   parentActive && active,
		ParentActive: parentActive,
	})
	return nil
}

func (pp *Preprocessor) handleElif(arg string) error {
	if len(pp.conditionals) == 0 {
		return fmt.Errorf("#elif without matching #if")
	}
	top := &pp.conditionals[len(pp.conditionals)-1]
	if !top.ParentActive || top.HasMatched {
		top.Active = false
		return nil
	}
	v, err := pp.evalDirectiveExpr(arg)
	if err != nil {
		return err
	}
	top.Active = v != 0
	if top.Active {
		top.HasMatched = true
	}
	return nil
}

func (pp *Preprocessor) handleElse() error {
	if len(pp.conditionals) == 0 {
		return fmt.Errorf("#else without matching #if")
	}
	top := &pp.conditionals[len(pp.conditionals)-1]
	top.Active = top.ParentActive && !top.HasMatched
	top.HasMatched = true
	return nil
}

func (pp *Preprocessor) handleEndif() error {
	if len(pp.conditionals) == 0 {
		return fmt.Errorf("#endif without matching #if")
	}
	pp.conditionals = pp.conditionals[:len(pp.conditionals)-1]
	return nil
}

// evalDirectiveExpr implements the #if/#elif pipeline: expand
// defined(...)/defined X to 0 or 1, expand macros, replace any remaining
// identifier with 0, then evaluate as a signed integer expression.
func (pp *Preprocessor) evalDirectiveExpr(expr string) (int64, error) {
	withDefined := pp.substituteDefined(expr)
	expanded, err := pp.expandMacros(withDefined)
	if err != nil {
		return 0, err
	}
	expanded = replaceRemainingIdentifiers(expanded)
	return evalConstExpr(expanded)
}

func (pp *Preprocessor) substituteDefined(expr string) string {
	var sb strings.Builder
	i := 0
	for i < len(expr) {
		if isIdentStart(expr[i]) {
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			word := expr[start:i]
			if word != "defined" {
				sb.WriteString(word)
				continue
			}
			j := i
			for j < len(expr) && isSpaceByte(expr[j]) {
				j++
			}
			name := ""
			if j < len(expr) && expr[j] == '(' {
				j++
				for j < len(expr) && isSpaceByte(expr[j]) {
					j++
				}
				start2 := j
				for j < len(expr) && isIdentPart(expr[j]) {
					j++
				}
				name = expr[start2:j]
				for j < len(expr) && isSpaceByte(expr[j]) {
					j++
				}
				if j < len(expr) && expr[j] == ')' {
					j++
				}
			} else {
				start2 := j
				for j < len(expr) && isIdentPart(expr[j]) {
					j++
				}
				name = expr[start2:j]
			}
			if _, ok := pp.macros[name]; ok {
				sb.WriteString("1")
			} else {
				sb.WriteString("0")
			}
			i = j
			continue
		}
		sb.WriteByte(expr[i])
		i++
	}
	return sb.String()
}

func replaceRemainingIdentifiers(expr string) string {
	var sb strings.Builder
	i := 0
	for i < len(expr) {
		if isIdentStart(expr[i]) {
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			sb.WriteString("0")
			_ = start
			continue
		}
		sb.WriteByte(expr[i])
		i++
	}
	return sb.String()
}

func (pp *Preprocessor) handleDefine(arg string) error {
	name, rest := splitWord(arg)
	// Function-like macros require '(' immediately after the name, no space.
	nameEnd := 0
	for nameEnd < len(arg) {
		c := arg[nameEnd]
		if isSpaceByte(c) || c == '(' {
			break
		}
		nameEnd++
	}
	name = arg[:nameEnd]
	if name == "" {
		return fmt.Errorf("#define missing macro name")
	}
	remainder := arg[nameEnd:]

	m := &Macro{}
	if len(remainder) > 0 && remainder[0] == '(' {
		close := strings.Index(remainder, ")")
		if close == -1 {
			return fmt.Errorf("unterminated macro parameter list in #define %s", name)
		}
		m.IsFunctionLike = true
		paramStr := remainder[1:close]
		if strings.TrimSpace(paramStr) != "" {
			for _, p := range strings.Split(paramStr, ",") {
				m.Params = append(m.Params, strings.TrimSpace(p))
			}
		}
		m.Body = strings.TrimSpace(remainder[close+1:])
	} else {
		m.Body = strings.TrimSpace(rest)
	}
	pp.macros[name] = m
	return nil
}

func (pp *Preprocessor) handleInclude(arg string, baseDir string) error {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return fmt.Errorf("#include with no argument")
	}

	var name string
	var isSystem bool
	switch {
	case strings.HasPrefix(arg, "\"") && strings.HasSuffix(arg, "\"") && len(arg) >= 2:
		name = arg[1 : len(arg)-1]
	case strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">") && len(arg) >= 2:
		name = arg[1 : len(arg)-1]
		isSystem = true
	default:
		return fmt.Errorf("malformed #include directive: %s", arg)
	}

	resolved, err := pp.resolveInclude(name, isSystem, baseDir)
	if err != nil {
		return err
	}

	if pp.includeStack[resolved] {
		return fmt.Errorf("circular include detected: %s", name)
	}
	if pp.cache.AlreadyIncluded(resolved) {
		return nil // repeat inclusion is a silent no-op
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("failed to read included file %s (resolved %s): %w", name, resolved, err)
	}

	pp.includeStack[resolved] = true
	fmt.Fprintf(&pp.out, "/* begin include %q */\n", name)
	if err := pp.run(string(content), filepath.Dir(resolved)); err != nil {
		return err
	}
	fmt.Fprintf(&pp.out, "/* end include %q */\n", name)
	delete(pp.includeStack, resolved)
	return nil
}

// resolveInclude implements the search order exactly: absolute
// path as-is; else (for "..." includes only) the current file's directory;
// else the configured search dirs in priority order.
func (pp *Preprocessor) resolveInclude(name string, isSystem bool, baseDir string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		return "", fmt.Errorf("include file %q not found", name)
	}

	var dirs []string
	if !isSystem {
		dirs = append(dirs, baseDir)
	}
	dirs = append(dirs, pp.searchDirs...)

	return pp.cache.Resolve(name, dirs)
}
