package systemd

// UnitName is the filename of the watch service unit.
const UnitName = "redtape-watch.service"

// WatchUnit returns the systemd user unit for the watch service. The %h
// specifier is resolved by systemd to the owning user's home directory,
// where the inbox, outbox, and state directories live.
func WatchUnit() string {
	return `[Unit]
Description=Redtape case adjudication watch service
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=/usr/local/bin/redtape watch
Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ReadWritePaths=%h/.redtape

[Install]
WantedBy=default.target
`
}
