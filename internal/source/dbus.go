package source

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	logx "notifyrelay/pkg/logx"
)

const becomeMonitor = "org.freedesktop.DBus.Monitoring.BecomeMonitor"

// Bus monitors the session bus directly and renders every message in the
// same text layout dbus-monitor prints, so the parser is shared with the
// exec source.
type Bus struct {
	conn *dbus.Conn
	msgs chan *dbus.Message
	log  logx.Logger
	now  func() time.Time

	pending []string

	done      chan struct{}
	closeOnce sync.Once
}

// StartBus connects to the session bus and turns the connection into a
// monitor for rules.
func StartBus(ctx context.Context, rules []string, log logx.Logger) (*Bus, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("dbus source: connect session bus: %w", err)
	}
	call := conn.BusObject().CallWithContext(ctx, becomeMonitor, 0, rules, uint32(0))
	if call.Err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("dbus source: become monitor: %w", call.Err)
	}

	// Eavesdrop only after the BecomeMonitor reply arrived; an eavesdropping
	// connection no longer routes replies to pending calls.
	msgs := make(chan *dbus.Message, 64)
	conn.Eavesdrop(msgs)

	log.Debug("bus monitor attached", logx.Any("rules", rules))
	return &Bus{conn: conn, msgs: msgs, log: log, now: time.Now, done: make(chan struct{})}, nil
}

func (b *Bus) Name() string { return "dbus:session" }

func (b *Bus) Next(ctx context.Context) (string, error) {
	for len(b.pending) == 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-b.done:
			return "", ErrSourceClosed
		case msg, ok := <-b.msgs:
			if !ok {
				return "", ErrSourceClosed
			}
			if msg != nil {
				b.pending = RenderMessage(msg, b.now())
			}
		}
	}
	line := b.pending[0]
	b.pending = b.pending[1:]
	return line, nil
}

func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	return err
}

// RenderMessage formats msg the way dbus-monitor does: one header line,
// then one line per body value (nested values indented).
func RenderMessage(msg *dbus.Message, at time.Time) []string {
	var b strings.Builder
	b.WriteString(messageKind(msg.Type))
	fmt.Fprintf(&b, " time=%d.%06d", at.Unix(), at.Nanosecond()/1000)
	if s := headerString(msg, dbus.FieldSender); s != "" {
		b.WriteString(" sender=" + s)
	}
	dest := headerString(msg, dbus.FieldDestination)
	if dest == "" {
		dest = "(null destination)"
	}
	b.WriteString(" -> destination=" + dest)
	fmt.Fprintf(&b, " serial=%d", msg.Serial())

	switch msg.Type {
	case dbus.TypeMethodReply, dbus.TypeError:
		if s := headerString(msg, dbus.FieldErrorName); s != "" {
			b.WriteString(" error_name=" + s)
		}
		b.WriteString(" reply_serial=" + headerString(msg, dbus.FieldReplySerial))
	default:
		fmt.Fprintf(&b, " path=%s; interface=%s; member=%s",
			headerString(msg, dbus.FieldPath),
			headerString(msg, dbus.FieldInterface),
			headerString(msg, dbus.FieldMember))
	}

	lines := []string{b.String()}
	for _, v := range msg.Body {
		lines = append(lines, renderValue(v, 1)...)
	}
	return lines
}

func messageKind(t dbus.Type) string {
	switch t {
	case dbus.TypeMethodCall:
		return "method call"
	case dbus.TypeMethodReply:
		return "method return"
	case dbus.TypeError:
		return "error"
	case dbus.TypeSignal:
		return "signal"
	default:
		return "unknown"
	}
}

func headerString(msg *dbus.Message, f dbus.HeaderField) string {
	v, ok := msg.Headers[f]
	if !ok {
		return ""
	}
	switch x := v.Value().(type) {
	case string:
		return x
	case dbus.ObjectPath:
		return string(x)
	case dbus.Signature:
		return x.String()
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	default:
		return fmt.Sprint(x)
	}
}

func indent(depth int) string { return strings.Repeat("   ", depth) }

func renderValue(v any, depth int) []string {
	pad := indent(depth)
	switch x := v.(type) {
	case string:
		return []string{pad + `string "` + x + `"`}
	case dbus.ObjectPath:
		return []string{pad + `object path "` + string(x) + `"`}
	case dbus.Signature:
		return []string{pad + `signature "` + x.String() + `"`}
	case bool:
		return []string{pad + "boolean " + strconv.FormatBool(x)}
	case byte:
		return []string{pad + "byte " + strconv.Itoa(int(x))}
	case int16:
		return []string{pad + "int16 " + strconv.Itoa(int(x))}
	case uint16:
		return []string{pad + "uint16 " + strconv.Itoa(int(x))}
	case int32:
		return []string{pad + "int32 " + strconv.Itoa(int(x))}
	case uint32:
		return []string{pad + "uint32 " + strconv.FormatUint(uint64(x), 10)}
	case int64:
		return []string{pad + "int64 " + strconv.FormatInt(x, 10)}
	case uint64:
		return []string{pad + "uint64 " + strconv.FormatUint(x, 10)}
	case float64:
		return []string{pad + "double " + strconv.FormatFloat(x, 'g', -1, 64)}
	case dbus.Variant:
		inner := renderValue(x.Value(), depth)
		inner[0] = pad + "variant " + strings.TrimLeft(inner[0], " ")
		return inner
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := []string{pad + "array ["}
		for i := 0; i < rv.Len(); i++ {
			out = append(out, renderValue(rv.Index(i).Interface(), depth+1)...)
		}
		return append(out, pad+"]")
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface()) })
		out := []string{pad + "array ["}
		for _, k := range keys {
			out = append(out, indent(depth+1)+"dict entry(")
			out = append(out, renderValue(k.Interface(), depth+2)...)
			out = append(out, renderValue(rv.MapIndex(k).Interface(), depth+2)...)
			out = append(out, indent(depth+1)+")")
		}
		return append(out, pad+"]")
	case reflect.Struct:
		out := []string{pad + "struct {"}
		for i := 0; i < rv.NumField(); i++ {
			if rv.Type().Field(i).IsExported() {
				out = append(out, renderValue(rv.Field(i).Interface(), depth+1)...)
			}
		}
		return append(out, pad+"}")
	default:
		return []string{pad + fmt.Sprint(v)}
	}
}
