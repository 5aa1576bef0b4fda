package cli

// Default values for CLI flags and output formatting.
const (
	// DefaultListLimit is the default number of assets to display.
	DefaultListLimit = 50
	// MaxCategoryDisplay is the maximum number of categories shown per asset.
	MaxCategoryDisplay = 3
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
)
