// README: Free-text order form parser (positional lines or label:value pairs).
package order

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/width"
)

var (
	ErrMissingField       = errors.New("required field missing")
	ErrLineCount          = errors.New("unexpected number of lines")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidQuantity    = errors.New("quantity must be digits")
	ErrZeroQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidPickupDate  = errors.New("invalid pickup date")
	errUnrecognizedFormat = errors.New("unrecognized form")
)

// positionalFields is the fixed line order of the legacy seven-line form.
var positionalFields = []string{
	FieldName, FieldPhone, FieldProduct, FieldVariant, FieldQuantity, FieldPickupDate, FieldAddress,
}

var (
	phonePattern = regexp.MustCompile(`^09\d{8}$`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	compactDate  = regexp.MustCompile(`^\d{8}$`)
)

const (
	bracketChars = "[]【】()<>「」『』"
	openBrackets = "[【(<「『"
)

type Parser struct {
	validate *validator.Validate
}

func NewParser() *Parser {
	v := validator.New()
	_ = v.RegisterValidation("twmobile", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Parser{validate: v}
}

// Parse accepts either the positional or the labeled form.
func (p *Parser) Parse(text string, required []string) (Draft, error) {
	lines := splitLines(text)
	if looksLabeled(lines) {
		return p.parseLabeled(lines, required)
	}
	// Inner blank lines hold a place here, so an empty pickup date line counts.
	lines = positionalLines(text)
	if len(lines) != len(positionalFields) {
		return Draft{}, ErrLineCount
	}
	fields := make(map[string]string, len(lines))
	for i, f := range positionalFields {
		fields[f] = lines[i]
	}
	return p.build(fields, required)
}

// ParseLabeled accepts only label:value pairs.
func (p *Parser) ParseLabeled(text string, required []string) (Draft, error) {
	lines := splitLines(text)
	if !looksLabeled(lines) {
		return Draft{}, errUnrecognizedFormat
	}
	return p.parseLabeled(lines, required)
}

func (p *Parser) parseLabeled(lines []string, required []string) (Draft, error) {
	fields := make(map[string]string)
	for _, line := range lines {
		label, value, ok := splitPair(line)
		if !ok {
			continue
		}
		if f, known := labelAliases[label]; known {
			fields[f] = value
		}
	}
	return p.build(fields, required)
}

func (p *Parser) build(fields map[string]string, required []string) (Draft, error) {
	for _, f := range required {
		if _, ok := fields[f]; !ok {
			return Draft{}, ErrMissingField
		}
	}

	d := Draft{
		Name:       fields[FieldName],
		Phone:      fields[FieldPhone],
		Product:    fields[FieldProduct],
		Variant:    fields[FieldVariant],
		Address:    fields[FieldAddress],
		PickupDate: NormalizeDate(fields[FieldPickupDate]),
		Note:       fields[FieldNote],
	}
	for _, f := range required {
		if f != FieldNote && strings.TrimSpace(fields[f]) == "" {
			return Draft{}, ErrMissingField
		}
	}

	qty := fields[FieldQuantity]
	if !digitsOnly.MatchString(qty) {
		return Draft{}, ErrInvalidQuantity
	}
	n, err := strconv.Atoi(qty)
	if err != nil {
		return Draft{}, ErrInvalidQuantity
	}
	d.Quantity = n

	if err := p.validate.Struct(d); err != nil {
		return Draft{}, mapValidation(err)
	}
	return d, nil
}

func mapValidation(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err
	}
	switch ves[0].Field() {
	case "Phone":
		return ErrInvalidPhone
	case "Quantity":
		return ErrZeroQuantity
	case "PickupDate":
		return ErrInvalidPickupDate
	}
	return err
}

// Normalize folds full-width characters (：, ０-９, Ａ-Ｚ) to their narrow forms.
func Normalize(s string) string {
	return width.Fold.String(s)
}

// NormalizeDate turns 20261018 or 2026/10/18 into 2026-10-18; other input is returned trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if compactDate.MatchString(s) {
		return s[:4] + "-" + s[4:6] + "-" + s[6:]
	}
	return strings.ReplaceAll(s, "/", "-")
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(Normalize(text), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// positionalLines trims the whole text, then splits it keeping blank lines.
func positionalLines(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(Normalize(text), "\r\n", "\n"))
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

func looksLabeled(lines []string) bool {
	for _, l := range lines {
		if label, _, ok := splitPair(l); ok {
			if _, known := labelAliases[label]; known {
				return true
			}
		}
	}
	return false
}

func splitPair(line string) (string, string, bool) {
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	label = strings.Trim(strings.TrimSpace(label), bracketChars+" ")
	// drop trailing hints such as 電話【09xxxxxxxx】
	if i := strings.IndexAny(label, openBrackets); i > 0 {
		label = strings.TrimSpace(label[:i])
	}
	return label, strings.TrimSpace(value), true
}
