// Package all registers every storage, cache and message driver.
//
// Import this package to register all available drivers automatically:
//
//	import _ "github.com/ncobase/lamet/data/all"
//
// Libraries embedding lamet should import only the drivers they need:
//
//	import (
//	    _ "github.com/ncobase/lamet/data/postgres"
//	    _ "github.com/ncobase/lamet/data/redis"
//	)
package all

import (
	// Database drivers
	_ "github.com/ncobase/lamet/data/mongodb"
	_ "github.com/ncobase/lamet/data/mysql"
	_ "github.com/ncobase/lamet/data/postgres"
	_ "github.com/ncobase/lamet/data/sqlite"

	// Cache drivers
	_ "github.com/ncobase/lamet/data/redis"

	// Messaging drivers
	_ "github.com/ncobase/lamet/data/kafka"
	_ "github.com/ncobase/lamet/data/rabbitmq"
)
