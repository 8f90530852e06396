// Package idgen generates the two id flavors DirEntity uses: random
// 16-byte-hex authoritative ids (server-assigned) and client-local
// temp-NNN placeholder ids.
package idgen
