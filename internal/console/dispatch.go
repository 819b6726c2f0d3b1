package console

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/matsen/hbnb/internal/literal"
	"github.com/matsen/hbnb/internal/record"
	"github.com/matsen/hbnb/internal/schema"
	"github.com/matsen/hbnb/internal/store"
	"go.uber.org/zap"
)

// Diagnostic is a user-facing command error. Its text is printed verbatim
// and the store is left untouched.
type Diagnostic string

func (d Diagnostic) Error() string { return string(d) }

// Fixed diagnostics.
const (
	ErrClassNameMissing  Diagnostic = "** class name missing **"
	ErrClassDoesntExist  Diagnostic = "** class doesn't exist **"
	ErrInstanceIDMissing Diagnostic = "** instance id missing **"
	ErrNoInstanceFound   Diagnostic = "** no instance found **"
	ErrAttrNameMissing   Diagnostic = "** attribute name missing **"
	ErrValueMissing      Diagnostic = "** value missing **"
	ErrInvalidDictionary Diagnostic = "** invalid dictionary format **"
)

// UnknownSyntax is the diagnostic for a line matching no command form.
func UnknownSyntax(raw string) Diagnostic {
	return Diagnostic("*** Unknown syntax: " + raw)
}

// Dispatcher executes parsed commands against a store.
type Dispatcher struct {
	store  *store.Store
	schema *schema.Schema
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher writing results and diagnostics to out
// and persistence failures to errOut. A nil logger disables logging.
func NewDispatcher(s *store.Store, out, errOut io.Writer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:  s,
		schema: s.Schema(),
		out:    out,
		errOut: errOut,
		logger: logger,
	}
}

// Execute runs one command and reports whether the loop should stop.
func (d *Dispatcher) Execute(cmd *Command) (stop bool) {
	var err error
	switch cmd.Verb {
	case VerbNone:
		return false
	case VerbQuit:
		return true
	case VerbEOF:
		fmt.Fprintln(d.out)
		return true
	case VerbCreate:
		err = d.create(cmd)
	case VerbShow:
		err = d.show(cmd)
	case VerbDestroy:
		err = d.destroy(cmd)
	case VerbAll:
		err = d.all(cmd)
	case VerbCount:
		err = d.count(cmd)
	case VerbUpdate:
		err = d.update(cmd)
	case VerbHelp:
		d.help(cmd.Arg(0))
	default:
		err = UnknownSyntax(cmd.Raw)
	}
	d.report(cmd, err)
	return false
}

func (d *Dispatcher) report(cmd *Command, err error) {
	if err == nil {
		return
	}
	var diag Diagnostic
	if errors.As(err, &diag) {
		fmt.Fprintln(d.out, diag)
		return
	}
	fmt.Fprintf(d.errOut, "error: %v\n", err)
	d.logger.Error("command failed", zap.String("verb", cmd.Verb), zap.Error(err))
}

// typeArg validates the type name at Args[0].
func (d *Dispatcher) typeArg(cmd *Command) (string, error) {
	if len(cmd.Args) == 0 || cmd.IsLiteral(0) {
		return "", ErrClassNameMissing
	}
	name := cmd.Args[0]
	if !d.schema.Has(name) {
		return "", ErrClassDoesntExist
	}
	return name, nil
}

// instanceArg validates the type name and id at Args[0:2].
func (d *Dispatcher) instanceArg(cmd *Command) (*record.Record, error) {
	typeName, err := d.typeArg(cmd)
	if err != nil {
		return nil, err
	}
	if len(cmd.Args) < 2 || cmd.IsLiteral(1) {
		return nil, ErrInstanceIDMissing
	}
	r, ok := d.store.Get(typeName, cmd.Args[1])
	if !ok {
		return nil, ErrNoInstanceFound
	}
	return r, nil
}

func (d *Dispatcher) create(cmd *Command) error {
	typeName, err := d.typeArg(cmd)
	if err != nil {
		return err
	}

	var pieces []string
	if cmd.Form == FormDot {
		pieces = splitRaw(cmd.Text, isCommaByte)
	} else if raw := splitRaw(cmd.Text, isSpaceByte); len(raw) > 0 {
		pieces = raw[1:]
	}

	r, err := d.store.Create(typeName, parseParams(pieces))
	if r != nil {
		fmt.Fprintln(d.out, r.ID)
	}
	return err
}

// parseParams reads key=value creation parameters. A double-quoted value
// is a string with underscores read as spaces; otherwise an integer, then
// a float, is tried. Anything else is skipped.
func parseParams(pieces []string) *literal.Map {
	params := literal.NewMap()
	for _, p := range pieces {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		raw = strings.TrimSpace(raw)
		if !ok || key == "" || record.IsReserved(key) {
			continue
		}
		if v, ok := paramValue(raw); ok {
			params.Set(key, v)
		}
	}
	return params
}

func paramValue(raw string) (literal.Value, bool) {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		s := raw[1 : len(raw)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
		s = strings.ReplaceAll(s, "_", " ")
		return literal.String(s), true
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return literal.Int(i), true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return literal.Float(f), true
	}
	return literal.Value{}, false
}

func (d *Dispatcher) show(cmd *Command) error {
	r, err := d.instanceArg(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, r.String())
	return nil
}

func (d *Dispatcher) destroy(cmd *Command) error {
	r, err := d.instanceArg(cmd)
	if err != nil {
		return err
	}
	return d.store.Delete(r.Type, r.ID)
}

func (d *Dispatcher) all(cmd *Command) error {
	var records []*record.Record
	if len(cmd.Args) == 0 {
		records = d.store.All()
	} else {
		typeName, err := d.typeArg(cmd)
		if err != nil {
			return err
		}
		records = d.store.Filter(typeName)
	}

	strs := make([]string, len(records))
	for i, r := range records {
		strs[i] = r.String()
	}
	fmt.Fprintln(d.out, literal.Strings(strs...).Repr())
	return nil
}

func (d *Dispatcher) count(cmd *Command) error {
	typeName, err := d.typeArg(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, d.store.Count(typeName))
	return nil
}

func (d *Dispatcher) update(cmd *Command) error {
	r, err := d.instanceArg(cmd)
	if err != nil {
		return err
	}
	if len(cmd.Args) < 3 {
		return ErrAttrNameMissing
	}

	if cmd.IsLiteral(2) {
		fields, err := literal.ParseMap(cmd.Args[2])
		if err != nil {
			d.logger.Debug("rejected update mapping", zap.String("text", cmd.Args[2]), zap.Error(err))
			return ErrInvalidDictionary
		}
		return d.updateFields(r, fields)
	}

	field := cmd.Args[2]
	if len(cmd.Args) < 4 {
		return ErrValueMissing
	}
	if record.IsReserved(field) {
		return nil
	}
	return d.store.Update(r.Type, r.ID, field, scalarValue(cmd.Args[3]))
}

// updateFields applies a mapping one entry at a time in mapping order.
func (d *Dispatcher) updateFields(r *record.Record, fields *literal.Map) error {
	var err error
	fields.Range(func(k string, v literal.Value) bool {
		if record.IsReserved(k) {
			return true
		}
		err = d.store.Update(r.Type, r.ID, k, v)
		return err == nil
	})
	return err
}

// scalarValue evaluates an update value as a literal, keeping text that is
// not one as a plain string.
func scalarValue(text string) literal.Value {
	v, err := literal.Parse(text)
	if err != nil {
		return literal.String(text)
	}
	return v
}
