package devices

var presets = []Profile{
	{
		Name:        "iPhone 14",
		Width:       390,
		Height:      844,
		UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		ScaleFactor: 3,
		Mobile:      true,
		Touch:       true,
	},
	{
		Name:        "iPhone SE",
		Width:       375,
		Height:      667,
		UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1",
		ScaleFactor: 2,
		Mobile:      true,
		Touch:       true,
	},
	{
		Name:        "Pixel 7",
		Width:       412,
		Height:      915,
		UserAgent:   "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36",
		ScaleFactor: 2.625,
		Mobile:      true,
		Touch:       true,
	},
	{
		Name:        "Galaxy S20",
		Width:       360,
		Height:      800,
		UserAgent:   "Mozilla/5.0 (Linux; Android 11; SM-G981B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36",
		ScaleFactor: 3,
		Mobile:      true,
		Touch:       true,
	},
	{
		Name:        "iPad Mini",
		Width:       768,
		Height:      1024,
		UserAgent:   "Mozilla/5.0 (iPad; CPU OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1",
		ScaleFactor: 2,
		Mobile:      true,
		Touch:       true,
	},
}
