/*
Package httpserver serves the monitor's check cache over HTTP.

Two read shapes are exposed over the same cache:

  - Event streams (/check, /chain_live, /account, /validators) push the
    current value as a server-sent event immediately and then on a fixed
    per-endpoint interval until the client disconnects.
  - Plain reads (/vals, /chain, /epoch.json) return the current value once.

/account.json passes the persisted account manifest through unchanged and "/"
serves static web assets when a directory is configured.

Handlers never compute anything: they load whatever the refresher last
stored. Before the first refresh they serve a default snapshot, so no
endpoint fails because of refresher timing.

Operational endpoints follow the usual layout: /livez, /readyz, /drain,
/undrain and, when enabled, /debug pprof. Prometheus metrics are served on a
separate listener.
*/
package httpserver
