// Package config loads the process wide settings: the default database and
// directory connections, the cache index store and logging.
//
// Values come from DefaultConfig, then an optional YAML file, then
// environment variables prefixed with SERVICELAYER:
//
//	database:
//	  driver: postgres
//	  dsn: postgres://app@localhost/app?sslmode=disable
//	directory:
//	  url: ldap://localhost:389
//	  base_dn: ou=people,dc=example,dc=org
//	cache:
//	  backend: sturdyc
//	  ttl: 30s
//	log:
//	  level: debug
//
// SERVICELAYER_DATABASE_DSN, SERVICELAYER_CACHE_TTL and so on override the
// matching keys.
package config
