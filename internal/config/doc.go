// Package config loads the ssrdoc configuration file.
//
// The configuration is stored in ssrdoc.json (or ssrdoc.yaml) next to the
// build output. Every field is optional; environment variables override
// the file.
//
// # Configuration File Structure
//
//	{
//	  "port": 3000,
//	  "ssr": true,
//	  "devMode": false,
//	  "publicPath": "/public/",
//	  "assets": {"dir": "build/app", "manifest": "manifest.json"},
//	  "sidecar": {"addr": "unix:///tmp/render.sock", "timeout": "10s"},
//	  "stream": {"chunkSize": 32768, "timeout": "30s"},
//	  "routes": [
//	    {"path": "/github", "stream": true,
//	     "enrich": {"url": "https://api.github.com/repos/jasonboy/wechat-jssdk/branches", "key": "github"}}
//	  ]
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Addr())
package config
