package canvas

// Palette groups.
const (
	GroupBasic = "basic"
	GroupChart = "chart"
	GroupGraph = "graph"
)

// ComponentType is a palette entry that can be dropped on the canvas.
type ComponentType struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var palette = []ComponentType{
	{ID: "header", Type: GroupBasic, Name: "Header", Icon: "fas fa-heading", Color: "text-indigo-600"},
	{ID: "text-body", Type: GroupBasic, Name: "Text Body", Icon: "fas fa-paragraph", Color: "text-gray-600"},
	{ID: "list", Type: GroupBasic, Name: "List", Icon: "fas fa-list", Color: "text-blue-600"},
	{ID: "table", Type: GroupBasic, Name: "Table", Icon: "fas fa-table", Color: "text-orange-600"},
	{ID: "image", Type: GroupBasic, Name: "Image", Icon: "fas fa-image", Color: "text-pink-600"},
	{ID: "metric", Type: GroupBasic, Name: "Metric", Icon: "fas fa-tachometer-alt", Color: "text-red-600"},
	{ID: "separator", Type: GroupBasic, Name: "Separator", Icon: "fas fa-minus", Color: "text-gray-400"},

	{ID: "histogram", Type: GroupChart, Name: "Histogram", Icon: "fas fa-chart-bar", Color: "text-blue-600"},
	{ID: "pie-chart", Type: GroupChart, Name: "Pie Chart", Icon: "fas fa-chart-pie", Color: "text-purple-600"},
	{ID: "bubble-chart", Type: GroupChart, Name: "Bubble Chart", Icon: "fas fa-circle", Color: "text-cyan-600"},
	{ID: "surface-chart", Type: GroupChart, Name: "Surface Chart", Icon: "fas fa-mountain", Color: "text-emerald-600"},
	{ID: "gantt-chart", Type: GroupChart, Name: "Gantt Chart", Icon: "fas fa-tasks", Color: "text-amber-600"},
	{ID: "area-chart", Type: GroupChart, Name: "Area Chart", Icon: "fas fa-chart-area", Color: "text-green-600"},
	{ID: "box-plot", Type: GroupChart, Name: "Box Plot", Icon: "fas fa-square", Color: "text-violet-600"},
	{ID: "scatter-plot", Type: GroupChart, Name: "Scatter Plot", Icon: "fas fa-braille", Color: "text-rose-600"},
	{ID: "bar-chart", Type: GroupChart, Name: "Bar Chart", Icon: "fas fa-chart-bar", Color: "text-blue-700"},
	{ID: "line-chart", Type: GroupChart, Name: "Line Chart", Icon: "fas fa-chart-line", Color: "text-green-700"},
	{ID: "lollipop-chart", Type: GroupChart, Name: "Lollipop Chart", Icon: "fas fa-grip-lines-vertical", Color: "text-pink-600"},
	{ID: "heat-map", Type: GroupChart, Name: "Heat Map", Icon: "fas fa-th", Color: "text-red-600"},
	{ID: "pareto-chart", Type: GroupChart, Name: "Pareto Chart", Icon: "fas fa-signal", Color: "text-indigo-600"},
	{ID: "radar-chart", Type: GroupChart, Name: "Radar Chart", Icon: "fas fa-crosshairs", Color: "text-teal-600"},

	{ID: "bullet-graph", Type: GroupGraph, Name: "Bullet Graph", Icon: "fas fa-thermometer-half", Color: "text-slate-600"},
	{ID: "dot-plot", Type: GroupGraph, Name: "Dot Plot", Icon: "fas fa-ellipsis-h", Color: "text-zinc-600"},
	{ID: "dumbbell-plot", Type: GroupGraph, Name: "Dumbbell Plot", Icon: "fas fa-dumbbell", Color: "text-stone-600"},
	{ID: "pictogram", Type: GroupGraph, Name: "Pictogram", Icon: "fas fa-user", Color: "text-neutral-600"},
	{ID: "line-graph", Type: GroupGraph, Name: "Line Graph", Icon: "fas fa-project-diagram", Color: "text-gray-600"},
	{ID: "mosaic-plot", Type: GroupGraph, Name: "Mosaic Plot", Icon: "fas fa-border-all", Color: "text-yellow-600"},
	{ID: "box-whisker-plot", Type: GroupGraph, Name: "Box & Whisker Plot", Icon: "fas fa-rectangle-list", Color: "text-lime-600"},
}

// Palette returns a copy of every droppable component type in display order.
func Palette() []ComponentType {
	out := make([]ComponentType, len(palette))
	copy(out, palette)
	return out
}

// PaletteGroups returns the palette keyed by group.
func PaletteGroups() map[string][]ComponentType {
	groups := make(map[string][]ComponentType, 3)
	for _, entry := range palette {
		groups[entry.Type] = append(groups[entry.Type], entry)
	}
	return groups
}

// Lookup finds a palette entry by id.
func Lookup(id string) (ComponentType, bool) {
	for _, entry := range palette {
		if entry.ID == id {
			return entry, true
		}
	}
	return ComponentType{}, false
}
