package tree

// ConnectionType classifies a resolved Link by which side(s) of it cross a
// composite instance's external boundary (spec.md §3/§4.G).
type ConnectionType string

const (
	ConnectionInternal           ConnectionType = "INTERNAL"
	ConnectionExternalToInternal ConnectionType = "EXTERNAL_TO_INTERNAL"
	ConnectionInternalToExternal ConnectionType = "INTERNAL_TO_EXTERNAL"
	ConnectionExternal           ConnectionType = "EXTERNAL"
)

// Link is a resolved connection between two concrete ports within one
// composite instance's scope (spec.md §3).
type Link struct {
	MsgType        string
	From           *Port
	To             *Port
	Namespace      []string
	ConnectionType ConnectionType
}
