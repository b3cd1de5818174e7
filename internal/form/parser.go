package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	defaultMaxFieldBytes = 1 << 20
	defaultMaxFileBytes  = 10 << 20
)

var (
	// ErrFieldTooLarge is returned when a single part exceeds the parser limits.
	ErrFieldTooLarge = errors.New("form field too large")
	// ErrUnsupportedBody is returned for content types the parser cannot read.
	ErrUnsupportedBody = errors.New("unsupported form body")
)

// ParserOptions configures a Parser.
type ParserOptions struct {
	// OnExpected observes every value that passed validation. Streamed multipart
	// bodies are visited in submission order; decoded maps in name order.
	OnExpected func(name string, v Value)
	// OnExtra observes every value whose name matched no field.
	OnExtra       func(name string, v Value)
	MaxFieldBytes int64
	MaxFileBytes  int64
}

// Parser validates submissions against a Spec. A Parser is safe for concurrent use
// as long as its callbacks are.
type Parser struct {
	spec     *Spec
	opts     ParserOptions
	validate *validator.Validate
}

var sharedValidate = validator.New()

// NewParser returns a parser for spec.
func NewParser(spec *Spec, opts ParserOptions) *Parser {
	if opts.MaxFieldBytes <= 0 {
		opts.MaxFieldBytes = defaultMaxFieldBytes
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	return &Parser{spec: spec, opts: opts, validate: sharedValidate}
}

// ParseRequest reads the request body. JSON bodies are treated as a structured
// object, multipart bodies are streamed part by part (files buffered whole), and
// anything else is read as a urlencoded form.
func (p *Parser) ParseRequest(r *http.Request) (*Result, error) {
	ct, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "application/json":
		var obj map[string]any
		dec := json.NewDecoder(io.LimitReader(r.Body, p.opts.MaxFieldBytes))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("decode json form: %w", err)
		}
		return p.ParseObject(obj), nil
	case strings.HasPrefix(ct, "multipart/"):
		if params["boundary"] == "" {
			return nil, ErrUnsupportedBody
		}
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, fmt.Errorf("read multipart form: %w", err)
		}
		return p.parseMultipart(mr)
	case ct == "" || ct == "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(nil, r.Body, p.opts.MaxFieldBytes)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return p.ParseValues(r.PostForm), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBody, ct)
	}
}

// ParseValues validates decoded url values. Only the first value of a repeated name is used.
func (p *Parser) ParseValues(vals url.Values) *Result {
	c := p.newCollector()
	for _, name := range sortedKeys(vals) {
		c.field(name, vals.Get(name))
	}
	return c.finish()
}

// ParseObject validates a structured body. Nested objects are addressed with
// dotted names; scalars are stringified.
func (p *Parser) ParseObject(obj map[string]any) *Result {
	flat := make(map[string]string)
	flattenInto(flat, "", obj)
	c := p.newCollector()
	for _, name := range sortedKeys(flat) {
		c.field(name, flat[name])
	}
	return c.finish()
}

// ParseMultipartForm validates a multipart form that was already read into
// memory. Only the first value or file of a repeated name is used, and a file
// part without a filename counts as no file.
func (p *Parser) ParseMultipartForm(mf *multipart.Form) (*Result, error) {
	c := p.newCollector()
	if mf == nil {
		return c.finish(), nil
	}
	for _, name := range sortedKeys(mf.Value) {
		if vals := mf.Value[name]; len(vals) > 0 {
			c.field(name, vals[0])
		}
	}
	for _, name := range sortedKeys(mf.File) {
		fhs := mf.File[name]
		if len(fhs) == 0 || fhs[0].Filename == "" {
			continue
		}
		file, err := p.readFileHeader(fhs[0])
		if err != nil {
			return nil, err
		}
		c.file(name, file)
	}
	return c.finish(), nil
}

func (p *Parser) readFileHeader(fh *multipart.FileHeader) (*File, error) {
	if fh.Size > p.opts.MaxFileBytes {
		return nil, ErrFieldTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer func() { _ = f.Close() }()
	data, err := readLimited(f, p.opts.MaxFileBytes)
	if err != nil {
		return nil, err
	}
	return &File{
		Filename: fh.Filename,
		Encoding: fh.Header.Get("Content-Transfer-Encoding"),
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (p *Parser) parseMultipart(mr *multipart.Reader) (*Result, error) {
	c := p.newCollector()
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart part: %w", err)
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}

		if !isFilePart(part.Header.Get("Content-Disposition")) {
			b, err := readLimited(part, p.opts.MaxFieldBytes)
			_ = part.Close()
			if err != nil {
				return nil, err
			}
			c.field(name, string(b))
			continue
		}

		data, err := readLimited(part, p.opts.MaxFileBytes)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		filename := part.FileName()
		if filename == "" {
			continue
		}
		c.file(name, &File{
			Filename: filename,
			Encoding: part.Header.Get("Content-Transfer-Encoding"),
			MIMEType: part.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return c.finish(), nil
}

type collector struct {
	p        *Parser
	values   map[string]Value
	errors   map[string]string
	extras   map[string]Value
	rejected map[string]string
}

func (p *Parser) newCollector() *collector {
	return &collector{
		p:        p,
		values:   make(map[string]Value),
		errors:   make(map[string]string),
		extras:   make(map[string]Value),
		rejected: make(map[string]string),
	}
}

func (c *collector) extra(name string, v Value) {
	c.extras[name] = v
	if c.p.opts.OnExtra != nil {
		c.p.opts.OnExtra(name, v)
	}
}

func (c *collector) expected(name string, v Value) {
	c.values[name] = v
	if c.p.opts.OnExpected != nil {
		c.p.opts.OnExpected(name, v)
	}
}

func (c *collector) field(name, value string) {
	f, ok := c.p.spec.Field(name)
	if !ok {
		c.extra(name, Value{Text: value})
		return
	}
	if f.Trim {
		value = strings.TrimSpace(value)
	}
	if reason := c.p.check(f, value); reason != "" {
		c.errors[name] = reason
		if value != "" {
			c.rejected[name] = value
		}
		return
	}
	c.expected(name, Value{Text: value})
}

func (c *collector) file(name string, file *File) {
	if _, ok := c.p.spec.Field(name); !ok {
		c.extra(name, Value{File: file})
		return
	}
	c.expected(name, Value{File: file})
}

// finish raises "required" for required fields that produced nothing and
// normalizes empty maps to nil.
func (c *collector) finish() *Result {
	for _, f := range c.p.spec.fields {
		if f.Type == TypeInfo || !f.Required {
			continue
		}
		if _, failed := c.errors[f.Name]; failed {
			continue
		}
		if v, ok := c.values[f.Name]; ok && v.String() != "" {
			continue
		}
		c.errors[f.Name] = ReasonRequired
	}

	res := &Result{}
	if len(c.values) > 0 {
		res.Values = c.values
	}
	if len(c.errors) > 0 {
		res.Errors = c.errors
	}
	if len(c.extras) > 0 {
		res.Extras = c.extras
	}
	if len(c.rejected) > 0 {
		res.Rejected = c.rejected
	}
	return res
}

// check returns the first failing rule for value, or "".
func (p *Parser) check(f FieldSpec, value string) string {
	if value == "" {
		if f.Required && f.Type != TypeInfo {
			return ReasonRequired
		}
		return ""
	}
	if re := p.spec.patterns[f.Name]; re != nil && !re.MatchString(value) {
		return ReasonPattern
	}
	if f.Type == TypeEmail && p.validate.Var(value, "email") != nil {
		return ReasonEmail
	}
	if f.Type == TypeSelect && !f.allows(value) {
		return ReasonNotAvailable
	}
	if f.isDate() {
		if _, err := time.Parse(p.spec.layouts[f.Name], value); err != nil {
			return DateError(f.DateFormat)
		}
	}
	n := utf8.RuneCountInString(value)
	if f.MinLength > 0 && n < f.MinLength {
		return ReasonMinLength
	}
	if f.MaxLength > 0 && n > f.MaxLength {
		return ReasonMaxLength
	}
	return ""
}

func isFilePart(disposition string) bool {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read form part: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, ErrFieldTooLarge
	}
	return b, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source feeds a submission to a parser. It lets callers choose the input while
// the form owner chooses the parser and its callbacks.
type Source func(p *Parser) (*Result, error)

// FromRequest reads the submission from an HTTP request body.
func FromRequest(r *http.Request) Source {
	return func(p *Parser) (*Result, error) { return p.ParseRequest(r) }
}

// FromValues reads the submission from decoded url values.
func FromValues(v url.Values) Source {
	return func(p *Parser) (*Result, error) { return p.ParseValues(v), nil }
}

// FromMultipartForm reads the submission from a multipart form already parsed
// by http.Request.ParseMultipartForm, files included.
func FromMultipartForm(mf *multipart.Form) Source {
	return func(p *Parser) (*Result, error) { return p.ParseMultipartForm(mf) }
}

// FromObject reads the submission from a structured object.
func FromObject(obj map[string]any) Source {
	return func(p *Parser) (*Result, error) { return p.ParseObject(obj), nil }
}
