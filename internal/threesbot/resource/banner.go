package resource

const (
	ProjectName    = "Threes"
	ProjectVersion = "v1.0.0"
	GithubURL      = "https://github.com/threes-games/threes"
)

const Graffiti = `
 _____ _
|_   _| |__  _ __ ___  ___  ___
  | | | '_ \| '__/ _ \/ _ \/ __|
  | | | | | | | |  __/  __/\__ \
  |_| |_| |_|_|  \___|\___||___/
`

const GreetingCLI = "%s %s — dice at the table, threes count for nothing\n%s\n\n"
