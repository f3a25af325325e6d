// internal/fixtures/fixtures.go
//
// YAML fixture loader for tenant databases.
//
// Context
// -------
// `adeptctl loadfixtures` seeds a development copy of a site from a dump of
// production-like rows.  Real e-mail addresses must never reach a dev
// database, so every string value that parses as an e-mail is rewritten
// through a template such as `dev+%s@example.com`, where %s is the
// original local part.  Plain `password` columns are bcrypt-hashed.
//
// File format
//
//	- table: provider
//	  rows:
//	    - {id: 1, slug: acme, full_name: Acme Inc.}
//	- table: user
//	  rows:
//	    - {id: 1, email: alice@corp.example, password: s3cret}
//
// Notes
// -----
// • All rows load in one transaction; any failure rolls everything back.
// • Table and column names are restricted to [A-Za-z0-9_].

package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DefaultEmailTemplate anonymizes addresses unless overridden.
const DefaultEmailTemplate = "dev+%s@example.com"

// ErrBadIdentifier is returned for unsafe table or column names.
var ErrBadIdentifier = errors.New("fixtures: invalid identifier")

// Table is one block of the fixture file.
type Table struct {
	Table string           `yaml:"table"`
	Rows  []map[string]any `yaml:"rows"`
}

// Options tunes Load.
type Options struct {
	EmailTemplate string // "" keeps addresses untouched
	HashPasswords bool
	PasswordCost  int
}

var (
	identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	check   = validator.New()
)

// Parse reads a fixture document.
func Parse(r io.Reader) ([]Table, error) {
	var tables []Table
	if err := yaml.NewDecoder(r).Decode(&tables); err != nil {
		return nil, fmt.Errorf("fixtures: parse: %w", err)
	}
	for _, t := range tables {
		if !identRE.MatchString(t.Table) {
			return nil, fmt.Errorf("%w: table %q", ErrBadIdentifier, t.Table)
		}
	}
	return tables, nil
}

// Load inserts every row of tables into db and returns the row count.
func Load(ctx context.Context, db *sqlx.DB, tables []Table, opts Options) (int, error) {
	anon := newAnonymizer(opts.EmailTemplate)
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n := 0
	for _, t := range tables {
		for i, row := range t.Rows {
			q, args, err := insert(t.Table, row, anon, opts)
			if err != nil {
				return 0, fmt.Errorf("fixtures: %s row %d: %w", t.Table, i, err)
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return 0, fmt.Errorf("fixtures: %s row %d: %w", t.Table, i, err)
			}
			n++
		}
		zap.L().Info("fixtures loaded", zap.String("table", t.Table), zap.Int("rows", len(t.Rows)))
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func insert(table string, row map[string]any, anon *anonymizer, opts Options) (string, []any, error) {
	cols := make([]string, 0, len(row))
	for c := range row {
		if !identRE.MatchString(c) {
			return "", nil, fmt.Errorf("%w: column %q", ErrBadIdentifier, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "`" + c + "`"
		v := row[c]
		if s, ok := v.(string); ok {
			switch {
			case c == "password" && opts.HashPasswords && !isBcrypt(s):
				h, err := bcrypt.GenerateFromPassword([]byte(s), opts.PasswordCost)
				if err != nil {
					return "", nil, err
				}
				v = string(h)
			default:
				v = anon.rewrite(s)
			}
		}
		args[i] = v
	}

	q := "INSERT INTO `" + table + "` (" + strings.Join(quoted, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	return q, args, nil
}

func isBcrypt(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

//
// e-mail anonymization
//

type anonymizer struct {
	tmpl string
	seen map[string]string // original → rewritten
	used map[string]int    // rewritten → count
}

func newAnonymizer(tmpl string) *anonymizer {
	return &anonymizer{tmpl: tmpl, seen: map[string]string{}, used: map[string]int{}}
}

// rewrite returns s unchanged unless it is an e-mail address.  The same
// address always maps to the same replacement; distinct addresses sharing a
// local part get a numeric suffix.
func (a *anonymizer) rewrite(s string) string {
	if a.tmpl == "" || check.Var(s, "required,email") != nil {
		return s
	}
	if out, ok := a.seen[s]; ok {
		return out
	}
	local, _, _ := strings.Cut(s, "@")
	out := fmt.Sprintf(a.tmpl, local)
	if n := a.used[out]; n > 0 {
		out = fmt.Sprintf(a.tmpl, local+"-"+strconv.Itoa(n+1))
	}
	a.used[fmt.Sprintf(a.tmpl, local)]++
	a.seen[s] = out
	return out
}
