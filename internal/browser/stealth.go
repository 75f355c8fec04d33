package browser

// StealthScript returns the script installed on every new document. It
// covers the checks the reservation site's bot filter is known to run:
// navigator.webdriver, the chrome runtime object, plugin count, and the
// accepted-languages list.
func StealthScript() string {
	return `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});

	window.chrome = {
		runtime: {},
	};

	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});

	Object.defineProperty(navigator, 'languages', {
		get: () => ['zh-CN', 'zh', 'en'],
	});
	`
}
