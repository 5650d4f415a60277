package cli

import (
	"fmt"

	"github.com/diillson/aws-cost-monitor-go/pkg/version"
	"github.com/fatih/color"
)

const banner = `
    ___ _       _______    ______           __     __  ___            _ __            
   /   | |     / / ___/   / ____/___  _____/ /_   /  |/  /___  ____  (_) /_____  _____
  / /| | | /| / /\__ \   / /   / __ \/ ___/ __/  / /|_/ / __ \/ __ \/ / __/ __ \/ ___/
 / ___ | |/ |/ /___/ /  / /___/ /_/ (__  ) /_   / /  / / /_/ / / / / / /_/ /_/ / /    
/_/  |_|__/|__//____/   \____/\____/____/\__/  /_/  /_/\____/_/ /_/_/\__/\____/_/     
`

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner(versionStr string) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Println(red(banner))

	formattedVersion := version.FormatVersion()
	if versionStr != "" && versionStr != version.Version {
		formattedVersion = versionStr
	}
	fmt.Println(blue(fmt.Sprintf("AWS Cost Monitor CLI (v%s)", formattedVersion)))
}
