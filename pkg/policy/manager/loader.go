package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mercator-hq/custodian/pkg/retention"
)

// PolicyLoader reads retention policies from YAML files. Every malformed
// policy in a file or directory is reported, not just the first.
type PolicyLoader struct {
	config *LoaderConfig
	calc   *retention.Calculator
	known  map[string]bool
}

// NewPolicyLoader creates a loader. calc supplies the category default
// periods used to validate policies without an explicit period.
func NewPolicyLoader(config *LoaderConfig, calc *retention.Calculator) *PolicyLoader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if calc == nil {
		calc = retention.NewCalculator()
	}
	return &PolicyLoader{
		config: config,
		calc:   calc,
		known:  specKeys(),
	}
}

// Load loads path as a single file or, if it is a directory, every policy
// file beneath it. Policy ids must be unique across the whole set.
func (l *PolicyLoader) Load(path string) ([]*retention.Policy, error) {
	isDir, err := l.IsDirectory(path)
	if err != nil {
		return nil, err
	}

	var (
		policies []*retention.Policy
		errList  = &ErrorList{}
	)
	if isDir {
		policies, err = l.LoadFromDirectory(path)
	} else {
		policies, err = l.LoadFromFile(path)
	}
	collect(errList, err)
	collect(errList, checkDuplicateIDs(policies))

	if errList.HasErrors() {
		return nil, errList.ToError()
	}
	return policies, nil
}

// LoadFromFile loads every policy in one file.
func (l *PolicyLoader) LoadFromFile(path string) ([]*retention.Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		case errors.Is(err, fs.ErrPermission):
			return nil, &LoadError{FilePath: path, Message: "permission denied", Cause: err}
		default:
			return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
		}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	return l.Parse(data, path)
}

// LoadFromDirectory loads every policy file under dir. Files are read in
// lexical order; errors from all files are collected.
func (l *PolicyLoader) LoadFromDirectory(dir string) ([]*retention.Policy, error) {
	files, err := l.collectPolicyFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &LoadError{FilePath: dir, Message: "no policy files found in directory"}
	}

	var policies []*retention.Policy
	errList := &ErrorList{}
	for _, f := range files {
		loaded, err := l.LoadFromFile(f)
		collect(errList, err)
		policies = append(policies, loaded...)
	}
	return policies, errList.ToError()
}

// Parse decodes a policy document. source names the document in errors.
// Policies that decode cleanly are returned alongside the errors for the
// ones that do not.
func (l *PolicyLoader) Parse(data []byte, source string) ([]*retention.Policy, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{FilePath: source, Line: yamlErrorLine(err), Message: "invalid YAML", Cause: err}
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, &ParseError{FilePath: source, Line: doc.Line, Column: doc.Column,
			Message: "document must be a mapping with a policies list"}
	}

	var list *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if key.Value != "policies" {
			return nil, &ParseError{FilePath: source, Line: key.Line, Column: key.Column,
				Message: fmt.Sprintf("unknown top-level field %q", key.Value)}
		}
		list = doc.Content[i+1]
	}
	switch {
	case list == nil:
		return nil, &ParseError{FilePath: source, Line: doc.Line, Message: "missing policies list"}
	case list.Tag == "!!null":
		return nil, nil
	case list.Kind != yaml.SequenceNode:
		return nil, &ParseError{FilePath: source, Line: list.Line, Column: list.Column,
			Message: "policies must be a list"}
	}

	var policies []*retention.Policy
	errList := &ErrorList{}
	for _, item := range list.Content {
		p, err := l.decodePolicy(item, source)
		if err != nil {
			errList.Add(err)
			continue
		}
		policies = append(policies, p)
	}
	return policies, errList.ToError()
}

func (l *PolicyLoader) decodePolicy(node *yaml.Node, source string) (*retention.Policy, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{FilePath: source, Line: node.Line, Column: node.Column,
			Message: "policy must be a mapping"}
	}

	conditionLine := node.Line
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !l.known[key.Value] {
			return nil, &ParseError{FilePath: source, Line: key.Line, Column: key.Column,
				Message: fmt.Sprintf("unknown field %q", key.Value)}
		}
		if key.Value == "condition" {
			conditionLine = key.Line
		}
	}

	var spec policySpec
	if err := node.Decode(&spec); err != nil {
		return nil, &ParseError{FilePath: source, Line: node.Line, Message: "invalid policy", Cause: err}
	}

	p := spec.policy(source)

	if spec.Condition != "" {
		cond, err := retention.CompileCondition(spec.Condition)
		if err != nil {
			cfgErr := retention.NewPolicyConfigError(spec.ID, "condition", "invalid condition", err)
			return nil, &ValidationError{PolicyID: spec.ID, FilePath: source, Line: conditionLine,
				Message: cfgErr.Error(), Cause: cfgErr}
		}
		p.Condition = cond
	}

	if err := p.Validate(l.calc); err != nil {
		return nil, &ValidationError{PolicyID: spec.ID, FilePath: source, Line: node.Line,
			Message: err.Error(), Cause: err}
	}
	return p, nil
}

func (s *policySpec) policy(source string) *retention.Policy {
	startEvent := retention.StartEvent(s.RetentionStartEvent)
	if startEvent == "" {
		startEvent = retention.StartCreated
	}

	return &retention.Policy{
		ID:                   s.ID,
		Name:                 s.Name,
		Description:          s.Description,
		AppliesTo:            retention.Scope(s.AppliesTo),
		Classifications:      s.Classifications,
		Categories:           s.Categories,
		RegulatoryFrameworks: s.RegulatoryFrameworks,
		RetentionCategory:    retention.Category(s.RetentionCategory),
		RetentionPeriodDays:  s.RetentionPeriodDays,
		RetentionStartEvent:  startEvent,
		ActionOnExpiry:       retention.ExpiryAction(s.ActionOnExpiry),
		NotifyBeforeDays:     s.NotifyBeforeDays,
		NotifyRecipients:     s.NotifyRecipients,
		ExcludeOnLegalHold:   boolOr(s.ExcludeOnLegalHold, true),
		Priority:             s.Priority,
		IsActive:             boolOr(s.IsActive, true),
		SourceFile:           source,
	}
}

// collectPolicyFiles returns the policy files under dir in lexical order.
func (l *PolicyLoader) collectPolicyFiles(dir string) ([]string, error) {
	var files []string
	visited := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !l.config.FollowSymlinks {
				return nil
			}
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return &LoadError{FilePath: path, Message: "failed to resolve symlink", Cause: err}
			}
			if visited[target] {
				return nil
			}
			visited[target] = true
			if !l.hasValidExtension(target) {
				return nil
			}
		} else if !l.hasValidExtension(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}

	sort.Strings(files)
	return files, nil
}

func (l *PolicyLoader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.AllowedExtensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

// IsDirectory checks if the given path is a directory.
func (l *PolicyLoader) IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, &LoadError{FilePath: path, Message: "path does not exist", Cause: err}
		}
		return false, &LoadError{FilePath: path, Message: "failed to access path", Cause: err}
	}
	return info.IsDir(), nil
}

// checkDuplicateIDs reports every policy id defined more than once.
func checkDuplicateIDs(policies []*retention.Policy) error {
	first := make(map[string]*retention.Policy, len(policies))
	errList := &ErrorList{}
	for _, p := range policies {
		if prev, ok := first[p.ID]; ok {
			errList.Add(&ValidationError{
				PolicyID: p.ID,
				FilePath: p.SourceFile,
				Message:  fmt.Sprintf("duplicate policy id, first defined in %s", prev.SourceFile),
				Cause:    retention.NewPolicyConfigError(p.ID, "id", "duplicate policy id", nil),
			})
			continue
		}
		first[p.ID] = p
	}
	return errList.ToError()
}

// collect flattens nested error lists into dst.
func collect(dst *ErrorList, err error) {
	if err == nil {
		return
	}
	var list *ErrorList
	if errors.As(err, &list) {
		dst.Errors = append(dst.Errors, list.Errors...)
		return
	}
	dst.Add(err)
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// yamlErrorLine extracts the line number from a yaml.v3 error message.
func yamlErrorLine(err error) int {
	m := yamlLineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func specKeys() map[string]bool {
	t := reflect.TypeOf(policySpec{})
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		keys[name] = true
	}
	return keys
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
