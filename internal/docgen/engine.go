package docgen

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// Template commands use {{ }} in the document text. They are translated into
// text/template actions with control-character delimiters, which cannot occur
// in well-formed XML.
const (
	actionOpen  = "\x02"
	actionClose = "\x03"
)

var (
	textRunRe  = regexp.MustCompile(`(<w:t(?:\s[^>]*)?>)([^<]*)(</w:t>)`)
	commandRe  = regexp.MustCompile(`\{\{(.*?)\}\}`)
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	forRe      = regexp.MustCompile(`^FOR\s+\$?([A-Za-z_][A-Za-z0-9_]*)\s+IN\s+(.+)$`)
	endForRe   = regexp.MustCompile(`^END-FOR\s+\$?([A-Za-z_][A-Za-z0-9_]*)$`)
	callRe     = regexp.MustCompile(`^(formatDate|formatNumber)\((.*)\)$`)
	errNoMatch = errors.New("unmatched loop command")
)

// Render fills a .docx template with vars. Every word/*.xml part is rendered;
// other parts are copied unchanged.
func Render(tpl []byte, vars map[string]any) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(tpl), int64(len(tpl)))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		data, err := readPart(f)
		if err != nil {
			return nil, err
		}
		if isContentPart(f.Name) && bytes.Contains(data, []byte("{{")) {
			if data, err = renderPart(f.Name, data, vars); err != nil {
				return nil, err
			}
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isContentPart(name string) bool {
	rest, ok := strings.CutPrefix(name, "word/")
	return ok && strings.HasSuffix(rest, ".xml") && !strings.Contains(rest, "/")
}

func renderPart(name string, data []byte, vars map[string]any) ([]byte, error) {
	src, err := translate(mergeRuns(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t, err := template.New(name).Delims(actionOpen, actionClose).Funcs(funcs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var out bytes.Buffer
	if err := t.Execute(&out, vars); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

// mergeRuns moves every {{...}} command into the first <w:t> it starts in.
// Word splits typed text into several runs; a command cut across runs would
// otherwise never match.
func mergeRuns(doc string) string {
	locs := textRunRe.FindAllStringSubmatchIndex(doc, -1)
	if len(locs) < 2 {
		return doc
	}
	var joined strings.Builder
	starts := make([]int, len(locs))
	for i, l := range locs {
		starts[i] = joined.Len()
		joined.WriteString(doc[l[4]:l[5]])
	}
	text := joined.String()
	owner := make([]int, len(text))
	for i, l := range locs {
		for j := 0; j < l[5]-l[4]; j++ {
			owner[starts[i]+j] = i
		}
	}
	moved := false
	for _, m := range commandRe.FindAllStringIndex(text, -1) {
		first := owner[m[0]]
		for k := m[0]; k < m[1]; k++ {
			if owner[k] != first {
				owner[k] = first
				moved = true
			}
		}
	}
	if !moved {
		return doc
	}
	parts := make([]strings.Builder, len(locs))
	for k := 0; k < len(text); k++ {
		parts[owner[k]].WriteByte(text[k])
	}
	var out strings.Builder
	prev := 0
	for i, l := range locs {
		out.WriteString(doc[prev:l[4]])
		out.WriteString(parts[i].String())
		prev = l[5]
	}
	out.WriteString(doc[prev:])
	return out.String()
}

type span struct{ start, end int }

// enclosing returns the <tag> element containing pos.
func enclosing(doc string, pos int, tag string) (span, bool) {
	open, closeTag := "<"+tag, "</"+tag+">"
	i := pos
	for {
		j := strings.LastIndex(doc[:i], open)
		if j < 0 {
			return span{}, false
		}
		k := j + len(open)
		if k < len(doc) && (doc[k] == '>' || doc[k] == ' ' || doc[k] == '\t' || doc[k] == '\n' || doc[k] == '\r') {
			if strings.Contains(doc[j:pos], closeTag) {
				return span{}, false
			}
			end := strings.Index(doc[pos:], closeTag)
			if end < 0 {
				return span{}, false
			}
			return span{start: j, end: pos + end + len(closeTag)}, true
		}
		i = j
	}
}

// block is the element a standalone loop command occupies: its table row
// when inside a table, otherwise its paragraph.
func block(doc string, pos int) (span, bool, bool) {
	if s, ok := enclosing(doc, pos, "w:tr"); ok {
		return s, true, true
	}
	s, ok := enclosing(doc, pos, "w:p")
	return s, false, ok
}

// translate rewrites loops first, then every remaining command.
func translate(doc string) (string, error) {
	loopVars := map[string]bool{}
	for {
		next, name, err := expandLoop(doc, loopVars)
		if err != nil {
			return "", err
		}
		if name == "" {
			break
		}
		loopVars[name] = true
		doc = next
	}
	var firstErr error
	out := commandRe.ReplaceAllStringFunc(doc, func(cmd string) string {
		action, err := translateCommand(strings.TrimSpace(cmd[2:len(cmd)-2]), loopVars)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return action
	})
	return out, firstErr
}

// expandLoop rewrites the first FOR ... END-FOR pair. A pair inside one table
// row repeats the row; a pair inside one paragraph repeats inline; otherwise
// the elements holding the commands are dropped and everything between them
// repeats.
func expandLoop(doc string, loopVars map[string]bool) (string, string, error) {
	cmds := commandRe.FindAllStringSubmatchIndex(doc, -1)
	for i, c := range cmds {
		m := forRe.FindStringSubmatch(strings.TrimSpace(doc[c[2]:c[3]]))
		if m == nil {
			continue
		}
		name := m[1]
		iter, err := translatePath(strings.TrimSpace(m[2]), loopVars)
		if err != nil {
			return "", "", err
		}
		header := actionOpen + "range $" + name + " := iter " + iter + actionClose
		footer := actionOpen + "end" + actionClose
		for _, e := range cmds[i+1:] {
			em := endForRe.FindStringSubmatch(strings.TrimSpace(doc[e[2]:e[3]]))
			if em == nil || em[1] != name {
				continue
			}
			fs, fe, es, ee := c[0], c[1], e[0], e[1]
			forBlock, forRow, okF := block(doc, fs)
			endBlock, _, okE := block(doc, es)
			switch {
			case okF && okE && forBlock == endBlock && forRow:
				row := doc[forBlock.start:forBlock.end]
				body := row[:fs-forBlock.start] + row[fe-forBlock.start:es-forBlock.start] + row[ee-forBlock.start:]
				return doc[:forBlock.start] + header + body + footer + doc[forBlock.end:], name, nil
			case !okF || !okE || forBlock == endBlock:
				return doc[:fs] + header + doc[fe:es] + footer + doc[ee:], name, nil
			case endBlock.start < forBlock.end:
				return "", "", fmt.Errorf("%w: FOR %s", errNoMatch, name)
			default:
				return doc[:forBlock.start] + header + doc[forBlock.end:endBlock.start] + footer + doc[endBlock.end:], name, nil
			}
		}
		return "", "", fmt.Errorf("%w: FOR %s", errNoMatch, name)
	}
	return doc, "", nil
}

func translateCommand(cmd string, loopVars map[string]bool) (string, error) {
	switch {
	case strings.HasPrefix(cmd, "INS "):
		cmd = strings.TrimSpace(cmd[4:])
	case strings.HasPrefix(cmd, "="):
		cmd = strings.TrimSpace(cmd[1:])
	}
	if endForRe.MatchString(cmd) {
		return "", fmt.Errorf("%w: %s", errNoMatch, cmd)
	}
	if m := callRe.FindStringSubmatch(cmd); m != nil {
		args := strings.Split(m[2], ",")
		path, err := translatePath(strings.TrimSpace(args[0]), loopVars)
		if err != nil {
			return "", err
		}
		if m[1] == "formatDate" {
			return actionOpen + "formatDate " + path + actionClose, nil
		}
		digits := 0
		if len(args) > 1 {
			if digits, err = strconv.Atoi(strings.TrimSpace(args[1])); err != nil {
				return "", fmt.Errorf("formatNumber digits %q", args[1])
			}
		}
		return actionOpen + "formatNumber " + path + " " + strconv.Itoa(digits) + actionClose, nil
	}
	path, err := translatePath(cmd, loopVars)
	if err != nil {
		return "", err
	}
	return actionOpen + "value " + path + actionClose, nil
}

// translatePath turns Name, Table.Field, $row or $row.Field into a lookup.
func translatePath(expr string, loopVars map[string]bool) (string, error) {
	segs := strings.Split(expr, ".")
	head := segs[0]
	dollar := strings.HasPrefix(head, "$")
	head = strings.TrimPrefix(head, "$")
	for _, s := range append([]string{head}, segs[1:]...) {
		if !identRe.MatchString(s) {
			return "", fmt.Errorf("unsupported command %q", expr)
		}
	}
	if dollar || loopVars[head] {
		if dollar && !loopVars[head] {
			return "", fmt.Errorf("unknown loop variable %q", "$"+head)
		}
		if len(segs) == 1 {
			return "$" + head, nil
		}
		return "(lookup $" + head + " " + quoteAll(segs[1:]) + ")", nil
	}
	return "(lookup $ " + quoteAll(segs) + ")", nil
}

func quoteAll(keys []string) string {
	q := make([]string, len(keys))
	for i, k := range keys {
		q[i] = strconv.Quote(k)
	}
	return strings.Join(q, " ")
}

var funcs = template.FuncMap{
	"lookup":       lookup,
	"iter":         iter,
	"value":        value,
	"formatDate":   formatDate,
	"formatNumber": formatNumber,
}

func lookup(base any, keys ...string) (any, error) {
	cur := base
	for _, k := range keys {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[k]
			if !ok {
				return nil, fmt.Errorf("%s is not defined", k)
			}
			cur = v
		case map[string]string:
			v, ok := m[k]
			if !ok {
				return nil, fmt.Errorf("%s is not defined", k)
			}
			cur = v
		default:
			return nil, fmt.Errorf("cannot read %s of %T", k, cur)
		}
	}
	return cur, nil
}

func iter(v any) (any, error) {
	if v == nil {
		return []any{}, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return v, nil
	}
	return nil, fmt.Errorf("cannot loop over %T", v)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func value(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return escape(x)
	case time.Time:
		return escape(x.Format("2006年01月02日"))
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return escape(strings.Join(x, ","))
	}
	return escape(fmt.Sprint(v))
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", time.RFC3339}

func formatDate(v any) string {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		t = x
	case string:
		if x == "" {
			return ""
		}
		parsed := false
		for _, layout := range dateLayouts {
			if p, err := time.Parse(layout, x); err == nil {
				t, parsed = p, true
				break
			}
		}
		if !parsed {
			return escape(x)
		}
	default:
		return value(v)
	}
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}

func formatNumber(v any, digits int) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', digits, 64)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatFloat(float64(rv.Int()), 'f', digits, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatFloat(float64(rv.Uint()), 'f', digits, 64)
	}
	return value(v)
}
