// Package all wires every built-in catalog backend into the catalog factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the catalog package. Binaries that only need a subset
// can blank-import individual backend packages instead.
package all

import (
	_ "trendmart/internal/catalog/memory"
	_ "trendmart/internal/catalog/postgres"
	_ "trendmart/internal/catalog/sqlite"
)
