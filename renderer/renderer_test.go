package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// tables parses markdown and returns every table as rows of cell texts,
// header row included.
func tables(t *testing.T, md string) [][][]string {
	t.Helper()
	src := []byte(md)
	doc := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser().Parse(text.NewReader(src))

	var res [][][]string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case east.KindTable:
			res = append(res, nil)
		case east.KindTableHeader, east.KindTableRow:
			var row []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				row = append(row, cellText(c, src))
			}
			res[len(res)-1] = append(res[len(res)-1], row)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func cellText(n ast.Node, src []byte) string {
	var b strings.Builder
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

var jan1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func position(t *testing.T, instrument string, txs ...costbasis.Transaction) costbasis.Position {
	t.Helper()
	for i := range txs {
		txs[i].Instrument = instrument
	}
	pos, _ := costbasis.ComputePosition(txs)
	return pos
}

func usd(v float64) costbasis.Money { return costbasis.M(v, "USD") }

func testSummary(t *testing.T) *Summary {
	t.Helper()
	held := position(t, "AAPL",
		costbasis.NewBuy(jan1, "", costbasis.Q(10), usd(150)),
		costbasis.NewSell(jan1, "", costbasis.Q(4), usd(180)),
	)
	quoted := position(t, "MSFT", costbasis.NewBuy(jan1, "", costbasis.Q(2), usd(400)))
	sold := position(t, "TSLA",
		costbasis.NewBuy(jan1, "", costbasis.Q(5), usd(200)),
		costbasis.NewSell(jan1, "", costbasis.Q(8), usd(250)),
	)
	never := position(t, "NVDA", costbasis.NewSell(jan1, "", costbasis.Q(1), usd(100)))

	positions := []costbasis.Position{held, quoted, never, sold}
	prices := map[string]costbasis.Money{"AAPL": usd(200), "MSFT": usd(400)}
	s, err := costbasis.ComputeAccountSummary(positions, prices)
	if err != nil {
		t.Fatal(err)
	}
	return NewSummary("broker", positions, s, []string{"MSFT"})
}

func TestRenderSummary(t *testing.T) {
	md := RenderSummary(testSummary(t))
	if strings.HasPrefix(md, "error") {
		t.Fatal(md)
	}
	if !strings.HasPrefix(md, "# broker\n") {
		t.Errorf("missing title in:\n%s", md)
	}

	got := tables(t, md)
	if len(got) != 3 {
		t.Fatalf("found %d tables, want holdings, closed and total in:\n%s", len(got), md)
	}

	holdings := got[0]
	if len(holdings) != 3 {
		t.Fatalf("holdings has %d rows, want header and 2 rows:\n%s", len(holdings), md)
	}
	aapl := holdings[1]
	want := []string{"AAPL", "6", "$150.00", "$200.00", "$1,200.00", "+$300.00", "+33.33%", "+$50.00", "+$120.00"}
	for i := range want {
		if aapl[i] != want[i] {
			t.Errorf("AAPL column %q = %q, want %q", holdings[0][i], aapl[i], want[i])
		}
	}
	if msft := holdings[2]; !strings.HasPrefix(msft[3], "$400.00") || !strings.HasSuffix(msft[3], "*") || msft[5] != "-" {
		t.Errorf("MSFT row = %q, want the fallback marker and no unrealized P&L", msft)
	}

	closed := got[1]
	if len(closed) != 3 {
		t.Fatalf("closed has %d rows, want header and 2 rows:\n%s", len(closed), md)
	}
	if closed[1][0] != "NVDA" || closed[1][1] != "empty" || closed[1][2] != "-" {
		t.Errorf("NVDA row = %q, want an empty position", closed[1])
	}
	if closed[2][0] != "TSLA" || closed[2][1] != "liquidated" || closed[2][2] != "+$250.00" {
		t.Errorf("TSLA row = %q, want a liquidated position", closed[2])
	}

	total := got[2][1]
	if total[0] != "$2,000.00" || total[1] != "$1,700.00" || total[2] != "+$420.00" || total[3] != "+24.71%" {
		t.Errorf("total row = %q", total)
	}

	for _, note := range []string{"no market price for MSFT", "TSLA: transaction #1 sells 8 but only 5 held"} {
		if !strings.Contains(md, note) {
			t.Errorf("missing note %q in:\n%s", note, md)
		}
	}
}

func TestRenderSummary_NoHoldings(t *testing.T) {
	md := RenderSummary(NewSummary("empty", nil, costbasis.AccountSummary{}, nil))
	if !strings.Contains(md, "No holdings.") {
		t.Errorf("RenderSummary() =\n%s\nwant a no holdings line", md)
	}
	if got := tables(t, md); len(got) != 0 {
		t.Errorf("found %d tables, want none", len(got))
	}
}

func TestRenderReport(t *testing.T) {
	got := RenderReport(testSummary(t))
	want := "**broker**\n" +
		"● AAPL: $200.00 (+33.33%)\n" +
		"● MSFT: $400.00 (no quote)\n" +
		"Total: $2,000.00 (+$420.00, +24.71%)\n"
	if got != want {
		t.Errorf("RenderReport() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderTransactions(t *testing.T) {
	buy := costbasis.NewBuy(jan1, "AAPL", costbasis.Q(10), usd(150))
	buy.Memo = "first"
	log := &Transactions{Account: "broker"}
	log.Add([]costbasis.Transaction{buy, costbasis.NewSell(jan1.AddDate(0, 1, 0), "AAPL", costbasis.Q(4), usd(180))})
	log.Add([]costbasis.Transaction{costbasis.NewBuy(jan1, "MSFT", costbasis.Q(2), usd(400))})

	md := RenderTransactions(log)
	got := tables(t, md)
	if len(got) != 1 || len(got[0]) != 4 {
		t.Fatalf("RenderTransactions() =\n%s\nwant one table with 3 rows", md)
	}
	rows := got[0]
	if want := []string{"AAPL", "1", "2025-02-01", "sell", "4", "$180.00", "$720.00", ""}; strings.Join(rows[2], "|") != strings.Join(want, "|") {
		t.Errorf("row = %q, want %q", rows[2], want)
	}
	if rows[1][7] != "first" || rows[3][0] != "MSFT" || rows[3][1] != "0" {
		t.Errorf("rows = %q", rows)
	}

	if md := RenderTransactions(&Transactions{Account: "x"}); !strings.Contains(md, "No transactions.") {
		t.Errorf("RenderTransactions(empty) =\n%s", md)
	}
}
