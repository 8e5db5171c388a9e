package cmd

import (
	_ "sapcontrol-keeper/cmd/instance"
	_ "sapcontrol-keeper/cmd/metrics"
	_ "sapcontrol-keeper/cmd/root"
	_ "sapcontrol-keeper/cmd/server"
	_ "sapcontrol-keeper/cmd/service"
	_ "sapcontrol-keeper/cmd/state"
	_ "sapcontrol-keeper/cmd/system"
)
