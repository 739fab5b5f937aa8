package mcts

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
)

// dotNode is the view of a Node the dot template renders.
type dotNode struct {
	ID     int
	Smiles string
	Prior  float32
	Mean   float32
	Visits uint32
}

// ToDot dumps the live tree in graphviz dot format, one table per node with
// its SMILES, visit count and value statistics. Handy for eyeballing what the
// search actually explored.
func (t *MCTS) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	g.SetDir(true)

	var buf bytes.Buffer
	for i := 0; i < t.Nodes(); i++ {
		id := naughty(i)
		n := t.nodeFromNaughty(id)
		if !n.IsActive() {
			continue
		}
		state := t.State(id)
		dn := dotNode{
			ID:     n.ID(),
			Smiles: state.Smiles(),
			Prior:  n.Prior(),
			Mean:   n.Mean(),
			Visits: n.Visits(),
		}
		if state.IsEmpty() {
			dn.Smiles = "(empty)"
		}

		tmpl.Execute(&buf, dn)
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		g.AddNode("G", fmt.Sprintf("n%d", i), attrs)
		buf.Reset()

		for _, kid := range t.Children(id) {
			child := t.nodeFromNaughty(kid)
			if !child.IsActive() {
				continue
			}
			g.AddEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", int(kid)), true, nil)
		}
	}
	return g.String()
}

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Node ID</TD><TD>{{.ID}}</TD></TR>
<TR><TD>Molecule</TD><TD>{{.Smiles}}</TD></TR>
<TR><TD>Visits</TD><TD>{{.Visits}}</TD></TR>
<TR><TD>Prior</TD><TD>{{.Prior}}</TD></TR>
<TR><TD>Mean</TD><TD>{{.Mean}}</TD></TR>
</TABLE>
>
`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("node").Parse(tmplRaw))
}
