// Package config provides configuration parsing for formstate servers.
//
// The configuration is stored in formstate.json. Every field is optional;
// relative paths are resolved against the directory of the file.
//
// # Configuration File Structure
//
//	{
//	  "addr": ":8080",
//	  "schemas": "forms",
//	  "log": {"level": "debug", "file": "formstate.log"},
//	  "metrics": {"namespace": "formstate"},
//	  "validation": {
//	    "onChange": true,
//	    "timeout": "5s",
//	    "errorMessage": "Validation failed"
//	  },
//	  "server": {
//	    "maxBodySize": 10485760,
//	    "pingInterval": "30s",
//	    "allowedOrigins": ["https://app.example.com"]
//	  },
//	  "uploads": {
//	    "dir": "uploads",
//	    "maxSize": 5242880,
//	    "s3": {"bucket": "forms", "prefix": "uploads/", "region": "eu-west-1"}
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Addr)
package config
