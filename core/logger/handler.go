package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// keyOrder fixes the leading columns of every line; other keys follow sorted.
var keyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "trace_id", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "handler", "kind", "cb_key",
	"outcome", "duration_ms",
	"from_state", "to_state", "event_kind", "photos", "prompts", "markup",
	"op", "method", "http_code", "attempt", "mode", "listen", "addr",
	"err", "err_code",
}

var knownOutcomes = map[string]bool{"ok": true, "fail": true, "cancelled": true, "rate_limited": true}

type field struct {
	key string
	val any
}

// entry is an insertion-ordered field set; setting a key twice keeps the
// first position and the last value.
type entry struct {
	fields []field
	pos    map[string]int
}

func newEntry(capacity int) *entry {
	return &entry{fields: make([]field, 0, capacity), pos: make(map[string]int, capacity)}
}

func (e *entry) set(key string, val any) {
	if i, ok := e.pos[key]; ok {
		e.fields[i].val = val
		return
	}
	e.pos[key] = len(e.fields)
	e.fields = append(e.fields, field{key: key, val: val})
}

func (e *entry) setMissing(key string, val any) {
	if _, ok := e.pos[key]; !ok {
		e.set(key, val)
	}
}

func (e *entry) str(key string) string {
	i, ok := e.pos[key]
	if !ok || e.fields[i].val == nil {
		return ""
	}
	if s, ok := e.fields[i].val.(string); ok {
		return s
	}
	return fmt.Sprint(e.fields[i].val)
}

// handler renders records as one JSON object or one key=value line each.
type handler struct {
	level  slog.Leveler
	out    *sink
	format logFormat
	rank   map[string]int
	preset []field
	prefix string
}

func newHandler(level slog.Leveler, out *sink, format logFormat, order []string) *handler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = keyOrder
	}
	rank := make(map[string]int, len(order))
	for i, k := range order {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &handler{level: level, out: out, format: format, rank: rank}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	e := newEntry(len(attrs))
	for _, a := range attrs {
		addAttr(e, h.prefix, a)
	}
	clone := *h
	clone.preset = append(append([]field(nil), h.preset...), e.fields...)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	e := newEntry(8 + len(h.preset) + r.NumAttrs())
	ts := r.Time.UTC()
	e.set("ts", ts.Truncate(time.Millisecond).Format(tsLayout))
	e.set("level", r.Level.String())
	if h.format == formatJSON {
		e.set("ts_unix_nano", ts.UnixNano())
	}
	for _, f := range h.preset {
		e.set(f.key, f.val)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(e, h.prefix, a)
		return true
	})
	h.addMeta(ctx, e)

	if e.str("event") == "" {
		ev := r.Message
		if ev == "" {
			ev = "unknown"
		}
		e.set("event", ev)
	}
	if e.str("component") == "" {
		e.set("component", "app")
	}
	if s := e.str("status"); s != "" {
		e.set("status", strings.ToLower(strings.TrimSpace(s)))
	}
	if o := e.str("outcome"); o != "" {
		o = strings.ToLower(strings.TrimSpace(o))
		if knownOutcomes[o] {
			e.set("outcome", o)
		} else {
			e.set("outcome", nil)
		}
	}

	line, err := h.encode(e)
	if err != nil {
		return err
	}
	return h.out.Write(line)
}

func (h *handler) addMeta(ctx context.Context, e *entry) {
	m := metaFrom(ctx)
	rid := e.str("rid")
	if rid == "" {
		rid = m.rid
	}
	if rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if h.format == formatJSON {
				e.setMissing("rid_full", rid)
			}
			rid = compact
		}
		e.set("rid", rid)
	}
	if m.traceID != "" {
		e.setMissing("trace_id", m.traceID)
	}
	if m.updateID != 0 {
		e.setMissing("update_id", int64(m.updateID))
	}
	if m.userID != 0 {
		e.setMissing("user_id", m.userID)
	}
	if m.chatID != 0 {
		e.setMissing("chat_id", m.chatID)
	}
	if m.handler != "" {
		e.setMissing("handler", m.handler)
	}
}

// ordered drops empty values and sorts by rank, unranked keys last by name.
func (h *handler) ordered(e *entry) []field {
	out := make([]field, 0, len(e.fields))
	for _, f := range e.fields {
		if f.val == nil {
			continue
		}
		if s, ok := f.val.(string); ok && s == "" {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := h.rank[out[i].key]
		rj, jok := h.rank[out[j].key]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].key < out[j].key
		}
	})
	return out
}

func (h *handler) encode(e *entry) ([]byte, error) {
	var b bytes.Buffer
	fields := h.ordered(e)
	if h.format == formatKV {
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f.key)
			b.WriteByte('=')
			b.WriteString(kvValue(f.val))
		}
		b.WriteByte('\n')
		return b.Bytes(), nil
	}

	b.WriteByte('{')
	for i, f := range fields {
		v, err := json.Marshal(f.val)
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", f.key, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(f.key))
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

func kvValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func addAttr(e *entry, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			addAttr(e, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := attrValue(key, a.Value); ok {
		e.set(k, v)
	}
}

// attrValue converts v to a JSON-friendly value. Durations are rounded to
// milliseconds and their key gains an _ms suffix.
func attrValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return "", nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case string:
		return key, strings.TrimSpace(x), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}
