package testutil

import (
	"fmt"
	"strings"
)

// HallRow renders one data row of a hall table: eleven cells with the
// machine id second and the composite probability last.
func HallRow(machineID, composite string) string {
	return fmt.Sprintf("<tr><td>0</td><td>%s</td><td>100</td><td>1</td><td>1</td><td>0</td><td>50</td>"+
		"<td>1/200</td><td>1/300</td><td></td><td>%s</td></tr>", machineID, composite)
}

// HallMarkup renders a hall page; pairs alternate machine id and composite
// probability. The single-cell caption row is skipped by the parser.
func HallMarkup(pairs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table><tr><th>台番号</th></tr>")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(HallRow(pairs[i], pairs[i+1]))
	}
	b.WriteString("</table></body></html>")
	return b.String()
}
