//go:build dev

package mmcli

func init() {
	devMode = true
}
