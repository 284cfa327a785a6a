package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/pos"
	"github.com/iliyamo/cinema-pos/internal/seating"
)

// cellWidth fits a merged couple label such as "AA10-11" plus its marker.
const cellWidth = 9

var markers = map[pos.SeatState]string{
	pos.StateAvailable:   " ",
	pos.StateSelected:    "*",
	pos.StatePending:     "~",
	pos.StateHeldByOther: "x",
	pos.StateBooked:      "#",
	pos.StateUnavailable: "-",
}

const legend = "legend: * selected  ~ pending  x held by another terminal  # booked  - unavailable"

// renderMap draws the seat grid.  A couple pair spans two cells.
func renderMap(w io.Writer, st *model.Showtime, cat *seating.Catalog, v pos.View) {
	if st != nil {
		fmt.Fprintf(w, "%s  %s  base %d\n", st.MovieTitle, st.StartsAt.Local().Format("Mon 02 Jan 15:04"), st.BasePrice)
	}
	if cat == nil {
		fmt.Fprintln(w, "seat map unavailable")
		return
	}
	fmt.Fprintln(w, strings.Repeat("=", 12)+" SCREEN "+strings.Repeat("=", 12))
	for _, row := range cat.Grid {
		var b strings.Builder
		for _, cell := range row {
			width := cellWidth * cell.Span
			if cell.Unit == nil {
				b.WriteString(strings.Repeat(" ", width))
				continue
			}
			text := markers[v.UnitState(*cell.Unit)] + cell.Unit.Label
			if cell.Unit.Couple() {
				text += " <3"
			}
			b.WriteString(fmt.Sprintf("%-*s", width, "["+text+"]"))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	if v.Stale {
		fmt.Fprintln(w, "(seat state may be outdated, run refresh)")
	}
	if len(v.Unknown) > 0 {
		fmt.Fprintf(w, "(%d seats reported by the server are not on this map)\n", len(v.Unknown))
	}
	fmt.Fprintln(w, legend)
}

func renderQuote(w io.Writer, q seating.Quote) {
	for _, l := range q.Seats {
		fmt.Fprintf(w, "  seat %-10s %2d x %9d = %10d\n", l.Label, l.Quantity, l.UnitPrice, l.Amount)
	}
	for _, l := range q.FoodDrinks {
		fmt.Fprintf(w, "  %-15s %2d x %9d = %10d\n", l.Label, l.Quantity, l.UnitPrice, l.Amount)
	}
	fmt.Fprintf(w, "  %-15s %27d\n", "TOTAL", q.Total)
}

func renderMenu(w io.Writer, items []model.FoodDrink, lines []model.FoodDrinkLineItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no food or drinks on sale")
		return
	}
	qty := make(map[uint64]int, len(lines))
	for _, l := range lines {
		qty[l.FoodDrinkID] = l.Quantity
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	for _, it := range items {
		fmt.Fprintf(w, "  %3d  %-20s %9d", it.ID, it.Name, it.Price)
		if n := qty[it.ID]; n > 0 {
			fmt.Fprintf(w, "  x%d", n)
		}
		fmt.Fprintln(w)
	}
}
