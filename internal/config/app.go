package config

type AppConfig struct {
	Match MatchConfig
	Log   LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	matchCfg, err := LoadMatch()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Match: matchCfg,
		Log:   logCfg,
	}, nil
}
