package main

import (
	"context"

	"oss.terrastruct.com/util-go/xmain"

	"github.com/aadish0day/mermaid/mmcli"
)

func main() {
	xmain.Main(run)
}

func run(ctx context.Context, ms *xmain.State) error {
	return mmcli.Run(ctx, ms)
}
