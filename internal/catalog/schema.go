package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	CatalogKind            = "catalog"
	SupportedSchemaVersion = 1
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

var ErrNotFound = errors.New("catalog not found")

type Catalog struct {
	Kind          string         `yaml:"kind" json:"-"`
	SchemaVersion int            `yaml:"schema_version" json:"-"`
	CatalogID     string         `yaml:"catalog_id" json:"id"`
	Name          string         `yaml:"name" json:"name"`
	StyleVariant  string         `yaml:"style_variant" json:"style_variant,omitempty"`
	BriefingMD    string         `yaml:"briefing_md" json:"briefing_md,omitempty"`
	Wording       Wording        `yaml:"wording" json:"wording"`
	Challenges    []Challenge    `yaml:"challenges" json:"-"`
	Extensions    map[string]any `yaml:"extensions" json:"-"`

	Path string `yaml:"-" json:"-"`
}

// Wording carries every catalog-specific string the interpreter prints.
// Intro accepts {minutes} and {total} placeholders.
type Wording struct {
	Welcome           string   `yaml:"welcome" json:"welcome"`
	Intro             string   `yaml:"intro" json:"intro"`
	SignOff           string   `yaml:"sign_off" json:"sign_off"`
	Noun              string   `yaml:"noun" json:"noun"`
	NounPlural        string   `yaml:"noun_plural" json:"noun_plural"`
	SubmitUsage       string   `yaml:"submit_usage" json:"submit_usage"`
	BannerSubmitUsage string   `yaml:"banner_submit_usage" json:"banner_submit_usage"`
	Tip               string   `yaml:"tip" json:"tip"`
	ExtraHelp         []string `yaml:"extra_help" json:"extra_help,omitempty"`
	Tips              []string `yaml:"tips" json:"tips,omitempty"`
}

type Challenge struct {
	ID          int      `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Flag        string   `yaml:"flag" json:"-"`
	Hints       []string `yaml:"hints" json:"-"`
}

func (c Catalog) Total() int { return len(c.Challenges) }

func (c Catalog) Validate() error {
	if c.Kind != CatalogKind {
		return fmt.Errorf("kind must be %q", CatalogKind)
	}
	if c.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", c.SchemaVersion)
	}
	if !idPattern.MatchString(c.CatalogID) {
		return fmt.Errorf("invalid catalog_id %q", c.CatalogID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("catalog %s: name is required", c.CatalogID)
	}
	if len(c.Challenges) == 0 {
		return fmt.Errorf("catalog %s: at least one challenge is required", c.CatalogID)
	}
	seenFlags := map[string]int{}
	for i, ch := range c.Challenges {
		if ch.ID != i+1 {
			return fmt.Errorf("catalog %s: challenge at position %d has id %d, ids must be dense from 1", c.CatalogID, i+1, ch.ID)
		}
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("catalog %s: %w", c.CatalogID, err)
		}
		if prev, ok := seenFlags[ch.Flag]; ok {
			return fmt.Errorf("catalog %s: challenge %d reuses the flag of challenge %d", c.CatalogID, ch.ID, prev)
		}
		seenFlags[ch.Flag] = ch.ID
	}
	return nil
}

func (ch Challenge) Validate() error {
	if strings.TrimSpace(ch.Title) == "" {
		return fmt.Errorf("challenge %d: title is required", ch.ID)
	}
	flag := strings.TrimSpace(ch.Flag)
	if flag == "" {
		return fmt.Errorf("challenge %d: flag is required", ch.ID)
	}
	// Submissions are upper-cased before comparison, so a flag with
	// lower-case letters or padding could never match.
	if flag != ch.Flag || strings.ToUpper(flag) != flag {
		return fmt.Errorf("challenge %d: flag %q must be upper-case without surrounding space", ch.ID, ch.Flag)
	}
	if len(ch.Hints) == 0 {
		return fmt.Errorf("challenge %d: at least one hint is required", ch.ID)
	}
	for i, h := range ch.Hints {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("challenge %d: hint %d is empty", ch.ID, i+1)
		}
	}
	return nil
}

func applyCatalogDefaults(c *Catalog) {
	w := &c.Wording
	if w.Noun == "" {
		w.Noun = "flag"
	}
	if w.NounPlural == "" {
		w.NounPlural = w.Noun + "s"
	}
	if w.Welcome == "" {
		w.Welcome = "Welcome to " + c.Name + "!"
	}
	if w.Intro == "" {
		w.Intro = "You have {minutes} minutes to capture {total} " + w.NounPlural + "."
	}
	if w.SignOff == "" {
		w.SignOff = "Good luck!"
	}
	if w.SubmitUsage == "" {
		w.SubmitUsage = fmt.Sprintf("submit <%s> - Submit a %s", w.Noun, w.Noun)
	}
	if w.BannerSubmitUsage == "" {
		w.BannerSubmitUsage = w.SubmitUsage
	}
	if w.Tip == "" {
		w.Tip = fmt.Sprintf("Check the challenge text for the %s format", w.Noun)
	}
	if c.StyleVariant == "" {
		c.StyleVariant = "modern_arcade"
	}
}
