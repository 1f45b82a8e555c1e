package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by invoke kind.
	EdgeVirtual   string // invoke-virtual
	EdgeInterface string // invoke-interface
	EdgeSuper     string // invoke-super
	EdgeDirect    string // invoke-direct (constructors, private methods)
	EdgeStatic    string // invoke-static
	EdgeOther     string // polymorphic and custom call sites

	// Conditional CFG edges.
	BranchTaken   string
	BranchFallout string

	// Node accents.
	ExternalFill string // methods outside the program
	ExternalText string
	EntryBorder  string
	TermFill     string // blocks ending in return or throw

	// Cluster styling.
	ClusterBorder string // subgraph cluster border
	ClusterLabel  string // subgraph cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeVirtual:   "#9E9E9E", // gray
	EdgeInterface: "#00695C", // teal
	EdgeSuper:     "#E65100", // deep orange
	EdgeDirect:    "#424242", // dark gray
	EdgeStatic:    "#0B3D91", // NASA blue
	EdgeOther:     "#FC3D21", // NASA red

	BranchTaken:   "#0B3D91",
	BranchFallout: "#FC3D21",

	ExternalFill: "#ECEFF1", // blue-gray 50
	ExternalText: "#9E9E9E",
	EntryBorder:  "#0B3D91",
	TermFill:     "#ECEFF1",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
