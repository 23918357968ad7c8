package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ohler55/ojg/oj"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
	"github.com/ajoealex/data-bucket-ui/pkg/search"
)

// methodColors mirrors the dashboard's method badge palette.
var methodColors = map[string]*color.Color{
	"GET":     color.New(color.FgGreen, color.Bold),
	"POST":    color.New(color.FgYellow, color.Bold),
	"PUT":     color.New(color.FgBlue, color.Bold),
	"PATCH":   color.New(color.FgMagenta, color.Bold),
	"DELETE":  color.New(color.FgRed, color.Bold),
	"HEAD":    color.New(color.FgHiGreen, color.Bold),
	"OPTIONS": color.New(color.FgHiMagenta, color.Bold),
}

func colorMethod(method string) string {
	if c, ok := methodColors[method]; ok {
		return c.Sprint(method)
	}
	return method
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

func printBucketsTable(buckets map[string]*api.Bucket, serverURL string) {
	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	// The mapping carries no order; sort by name for a stable listing.
	sort.Slice(ids, func(i, j int) bool {
		return buckets[ids[i]].Name < buckets[ids[j]].Name
	})

	t := newTable()
	t.AppendHeader(table.Row{"Name", "ID", "Requests", "Last Request", "Capture Endpoint"})
	for _, id := range ids {
		b := buckets[id]
		t.AppendRow(table.Row{
			b.Name,
			id,
			requestQuota(b),
			formatOptionalTime(b.LastRequestAt),
			api.CaptureURL(serverURL, id),
		})
	}
	t.Render()
	fmt.Printf("%d bucket(s)\n", len(buckets))
}

func requestQuota(b *api.Bucket) string {
	if b.MaxRequests == nil {
		return fmt.Sprintf("%d / ∞", b.RequestCount)
	}
	return fmt.Sprintf("%d / %d", b.RequestCount, *b.MaxRequests)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// requestOrdinals maps each filtered entry back to its position in the
// unfiltered sequence. Filters pass the snapshot's pointers through
// unchanged, so identity lookup recovers the ordinal.
func requestOrdinals(filtered, all []*api.CapturedRequest) []int {
	pos := make(map[*api.CapturedRequest]int, len(all))
	for i, r := range all {
		pos[r] = i
	}
	out := make([]int, len(filtered))
	for i, r := range filtered {
		out[i] = pos[r]
	}
	return out
}

// printRequestsTable renders captured requests newest first. The position
// column keeps each entry's stable ordinal in the synchronized sequence so
// --select works regardless of display order or filters.
func printRequestsTable(filtered, all []*api.CapturedRequest) {
	ordinals := requestOrdinals(filtered, all)
	t := newTable()
	t.AppendHeader(table.Row{"#", "Method", "Endpoint", "IP", "Received", "Payload"})
	for i := len(filtered) - 1; i >= 0; i-- {
		r := filtered[i]
		t.AppendRow(table.Row{
			ordinals[i],
			colorMethod(r.Method),
			r.Endpoint,
			r.IP,
			r.Timestamp.Local().Format("15:04:05"),
			r.PayloadType,
		})
	}
	t.Render()
	if len(filtered) != len(all) {
		fmt.Printf("%d of %d request(s)\n", len(filtered), len(all))
		return
	}
	fmt.Printf("%d request(s)\n", len(all))
}

func printRequestDetail(index int, r *api.CapturedRequest) {
	fmt.Printf("Request #%d  %s %s\n", index, colorMethod(r.Method), r.Endpoint)
	fmt.Printf("  IP:        %s\n", r.IP)
	fmt.Printf("  Received:  %s\n", r.Timestamp.Local().Format(time.RFC1123))

	if len(r.Headers) > 0 {
		fmt.Println("\nHeaders")
		printKVTable(r.Headers)
	}
	if len(r.Query) > 0 {
		fmt.Println("\nQuery Parameters")
		printKVTable(r.Query)
	}
	if r.Payload != nil {
		fmt.Printf("\nPayload (%s)\n", r.PayloadType)
		printPayload(r.Payload, r.PayloadType)
	}
}

func printKVTable(m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable()
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, search.Flatten(m[k])})
	}
	t.Render()
}

// printPayload renders form-style payloads as key/value tables and
// everything else as a formatted block, the way the dashboard does.
func printPayload(payload any, payloadType string) {
	switch payloadType {
	case api.PayloadForm, api.PayloadMultipart:
		if fields, ok := payload.(map[string]any); ok {
			printKVTable(fields)
			return
		}
	case api.PayloadXML:
		if s, ok := payload.(string); ok {
			fmt.Println(indentXML(s))
			return
		}
	}

	if s, ok := payload.(string); ok {
		fmt.Println(s)
		return
	}
	fmt.Println(oj.JSON(payload, &oj.Options{Sort: true, Indent: 2}))
}

// indentXML re-indents an XML payload for display; malformed documents are
// shown as-is.
func indentXML(raw string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return raw
	}
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return raw
	}
	return strings.TrimRight(out, "\n")
}

// bodyString renders a bucket's stored mock response back into editable
// text: json bodies re-serialize with indentation, xml/text bodies are
// already strings.
func bodyString(body any, respType string) string {
	if body == nil {
		return ""
	}
	if s, ok := body.(string); ok {
		return s
	}
	if respType == api.ResponseTypeJSON {
		return oj.JSON(body, &oj.Options{Sort: true, Indent: 2})
	}
	return search.Flatten(body)
}
