package tap

import (
	"os"

	_ "github.com/Widen/tap-rest-api-msdk/destination/parquet" // registering local parquet writer
	_ "github.com/Widen/tap-rest-api-msdk/destination/singer"  // registering singer stdout writer
	"github.com/Widen/tap-rest-api-msdk/drivers/abstract"
	"github.com/Widen/tap-rest-api-msdk/protocol"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/Widen/tap-rest-api-msdk/utils/safego"
)

func RegisterDriver(driver abstract.DriverInterface) {
	defer safego.Recovery(true)

	// Execute the root command
	err := protocol.CreateRootCommand(driver).Execute()
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}
