package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner
func PrintBanner(version string) {
	b := banner.New()
	b.PrintTopLine()
	b.PrintText("Pagemill")
	b.PrintText("Version: " + version)
	b.PrintBottomLine()
}
