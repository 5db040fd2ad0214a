package types

// Standard table names for Cupboard.GetTable.
const (
	TableBoards = "boards"
	TableLists  = "lists"
	TableCards  = "cards"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	TableBoards,
	TableLists,
	TableCards,
}

// IsStandardTable reports whether name is one of StandardTableNames.
func IsStandardTable(name string) bool {
	for _, n := range StandardTableNames {
		if n == name {
			return true
		}
	}
	return false
}
