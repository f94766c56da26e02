package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/crud"
)

const (
	orderingParam = "ordering"
	maxMemory     = 32 << 20 // 32MB
)

type param struct {
	key   string
	value string
}

// params holds the request parameters in their order of appearance: query string first, then body.
type params []param

// bindParams reads the query string and the url-encoded, multipart or JSON body of the request.
// Multipart file parts are left aside. JSON values are turned into strings; arrays become comma separated lists.
func bindParams(ctx echo.Context) (params, error) {
	ps, err := parseQuery(ctx.Request().URL.RawQuery)
	if err != nil {
		return nil, errMalformedBody
	}

	req := ctx.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return ps, nil
	}
	ctype, mparams, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))

	var body params
	switch ctype {
	case echo.MIMEApplicationForm:
		var data []byte
		if data, err = io.ReadAll(req.Body); err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
		body, err = parseQuery(string(data))
	case echo.MIMEMultipartForm:
		body, err = parseMultipart(req.Body, mparams["boundary"])
	case echo.MIMEApplicationJSON:
		body, err = parseJSON(req.Body)
	default:
		return ps, nil
	}
	if err != nil {
		return nil, errMalformedBody
	}
	return append(ps, body...), nil
}

func parseQuery(raw string) (params, error) {
	var ps params
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v := pair, ""
		if i := strings.IndexByte(pair, '='); i >= 0 {
			k, v = pair[:i], pair[i+1:]
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		ps = append(ps, param{key: key, value: value})
	}
	return ps, nil
}

func parseMultipart(r io.Reader, boundary string) (params, error) {
	if boundary == "" {
		return nil, errors.New("missing multipart boundary")
	}
	var (
		ps   params
		size int64
	)
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return ps, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FileName() != "" || part.FormName() == "" {
			continue
		}
		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(part, maxMemory-size+1))
		if err != nil {
			return nil, err
		}
		if size += n; size > maxMemory {
			return nil, multipart.ErrMessageTooLarge
		}
		ps = append(ps, param{key: part.FormName(), value: buf.String()})
	}
}

func parseJSON(r io.Reader) (params, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var ps params
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("expected a JSON object key")
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		ps = append(ps, param{key: key, value: jsonString(value)})
	}
	_, err = dec.Token() // closing '}'
	return ps, err
}

func jsonString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, jsonString(item))
		}
		return strings.Join(items, ",")
	}
	data, _ := json.Marshal(value)
	return string(data)
}

// get returns the last value of key.
func (ps params) get(key string) string {
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i].key == key {
			return ps[i].value
		}
	}
	return ""
}

func (ps params) has(key string) bool {
	for _, p := range ps {
		if p.key == key {
			return true
		}
	}
	return false
}

// all returns every value of key.
func (ps params) all(key string) []string {
	var values []string
	for _, p := range ps {
		if p.key == key {
			values = append(values, p.value)
		}
	}
	return values
}

// require reports the keys that are missing or blank.
func (ps params) require(keys ...string) *core.ValidationError {
	verr := core.NewValidationError(nil)
	for _, key := range keys {
		if core.CleanString(ps.get(key)) == "" {
			verr.Add(key, core.MsgRequired)
		}
	}
	return verr
}

// changeSet returns the changes of the given fields, in request order.
// Fields are renamed through aliases ({param: field}) when given.
func (ps params) changeSet(fields []string, aliases ...map[string]string) crud.ChangeSet {
	allowed := make(map[string]string, len(fields))
	for _, f := range fields {
		allowed[f] = f
	}
	for _, m := range aliases {
		for k, f := range m {
			allowed[k] = f
		}
	}
	cs := make(crud.ChangeSet, 0, len(ps))
	for _, p := range ps {
		if field, ok := allowed[p.key]; ok {
			cs = append(cs, crud.Change{Field: field, Value: p.value})
		}
	}
	return cs
}

// ordering parses the `ordering` param, dropping the fields not accepted by valid.
func (ps params) ordering(valid func(string) bool) []core.DBOrdering {
	return core.ParseOrdering(ps.get(orderingParam), valid)
}
