// Package types defines the Cupboard, Table, Accounts and Auth interfaces,
// the board/list/card entity types, and the standard errors shared by every
// taskboard backend and client.
package types
