package main

import (
	tap "github.com/Widen/tap-rest-api-msdk"
	driver "github.com/Widen/tap-rest-api-msdk/drivers/restapi/internal"
)

func main() {
	tap.RegisterDriver(&driver.RestAPI{})
}
