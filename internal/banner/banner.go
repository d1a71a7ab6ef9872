package banner

import (
	"poolprobe/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
                  __                  __       
    ____  ____  ____  / /___  _________  / /_  ___ 
   / __ \/ __ \/ __ \/ / __ \/ ___/ __ \/ __ \/ _ \
  / /_/ / /_/ / /_/ / / /_/ / /  / /_/ / /_/ /  __/
 / .___/\____/\____/_/ .___/_/   \____/_.___/\___/ 
/_/                 /_/                            `

	return "\n" + style.Render(ascii) + "\n"
}
