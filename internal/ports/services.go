package ports

import "fmt"

// UnknownService is reported for ports missing from the service table.
const UnknownService = "Unknown"

var serviceNames = map[uint16]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	111:  "RPC",
	135:  "RPC",
	139:  "NetBIOS",
	143:  "IMAP",
	389:  "LDAP",
	443:  "HTTPS",
	445:  "SMB",
	548:  "AFP",
	587:  "SMTP",
	636:  "LDAPS",
	993:  "IMAPS",
	995:  "POP3S",
	1433: "MSSQL",
	1521: "Oracle",
	2049: "NFS",
	3268: "AD-GC",
	3269: "AD-GC-SSL",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
	5900: "VNC",
	5985: "WinRM",
	5986: "WinRM-S",
	6379: "Redis",
	8080: "HTTP-Alt",
	8443: "HTTPS-Alt",
	8888: "HTTP-Alt",
}

// Ports highlighted as risky in reports: plaintext protocols, remote
// administration, databases and file sharing.
var riskyPorts = map[uint16]struct{}{
	21: {}, 23: {}, 111: {}, 135: {}, 139: {}, 445: {},
	1433: {}, 1521: {}, 2049: {}, 3306: {}, 3389: {},
	5432: {}, 5900: {}, 5985: {}, 5986: {}, 6379: {},
}

var fileServicePorts = map[uint16]struct{}{
	139:  {},
	445:  {},
	2049: {},
}

// ServiceName returns the well-known service for p, or UnknownService.
func ServiceName(p uint16) string {
	if name, ok := serviceNames[p]; ok {
		return name
	}
	return UnknownService
}

// IsRisky reports whether p is in the risky-port table.
func IsRisky(p uint16) bool {
	_, ok := riskyPorts[p]
	return ok
}

// IsFileService reports whether p carries SMB/NetBIOS or NFS.
func IsFileService(p uint16) bool {
	_, ok := fileServicePorts[p]
	return ok
}

// Risk grades a port for report tooltips.
type Risk string

const (
	RiskHigh    Risk = "HIGH RISK"
	RiskMedium  Risk = "MEDIUM RISK"
	RiskLow     Risk = "LOW RISK"
	RiskSecure  Risk = "SECURE"
	RiskUnknown Risk = "UNKNOWN RISK"
)

// Description is the tooltip text shown for a port in the HTML report.
type Description struct {
	Summary string `json:"description"`
	Risk    Risk   `json:"security"`
}

var descriptions = map[uint16]Description{
	20:    {"FTP data transfer", RiskHigh},
	21:    {"FTP control channel, credentials travel in plaintext", RiskHigh},
	22:    {"SSH remote shell", RiskSecure},
	23:    {"Telnet, unencrypted remote terminal", RiskHigh},
	25:    {"SMTP mail transfer", RiskMedium},
	53:    {"DNS", RiskLow},
	69:    {"TFTP, unauthenticated file transfer", RiskHigh},
	80:    {"HTTP web server", RiskMedium},
	88:    {"Kerberos authentication", RiskSecure},
	110:   {"POP3 mailbox access", RiskMedium},
	111:   {"RPC portmapper", RiskHigh},
	135:   {"Microsoft RPC endpoint mapper", RiskHigh},
	139:   {"NetBIOS session service", RiskMedium},
	143:   {"IMAP mailbox access", RiskMedium},
	161:   {"SNMP management", RiskHigh},
	389:   {"LDAP directory", RiskMedium},
	443:   {"HTTPS web server", RiskLow},
	445:   {"SMB file sharing", RiskHigh},
	465:   {"SMTP over TLS", RiskSecure},
	548:   {"AFP, Apple Filing Protocol", RiskMedium},
	587:   {"SMTP submission with STARTTLS", RiskSecure},
	636:   {"LDAP over TLS", RiskSecure},
	873:   {"rsync", RiskMedium},
	993:   {"IMAP over TLS", RiskSecure},
	995:   {"POP3 over TLS", RiskSecure},
	1433:  {"Microsoft SQL Server", RiskHigh},
	1521:  {"Oracle TNS listener", RiskHigh},
	2049:  {"NFS file sharing", RiskHigh},
	2375:  {"Docker daemon API without TLS", RiskHigh},
	3268:  {"Active Directory global catalog", RiskHigh},
	3269:  {"Active Directory global catalog over TLS", RiskMedium},
	3306:  {"MySQL / MariaDB", RiskHigh},
	3389:  {"RDP remote desktop", RiskHigh},
	5432:  {"PostgreSQL", RiskHigh},
	5900:  {"VNC remote desktop", RiskHigh},
	5985:  {"WinRM over HTTP", RiskHigh},
	5986:  {"WinRM over HTTPS", RiskMedium},
	6379:  {"Redis", RiskHigh},
	8080:  {"HTTP alternate / proxy", RiskMedium},
	8443:  {"HTTPS alternate", RiskMedium},
	8888:  {"HTTP alternate, often Jupyter", RiskHigh},
	9200:  {"Elasticsearch REST API", RiskHigh},
	11211: {"Memcached", RiskHigh},
	27017: {"MongoDB", RiskHigh},
}

// Describe returns the report description for p. Unknown ports get a
// generic description with RiskUnknown.
func Describe(p uint16) Description {
	if d, ok := descriptions[p]; ok {
		return d
	}
	return Description{
		Summary: fmt.Sprintf("Port %d, unknown or custom application", p),
		Risk:    RiskUnknown,
	}
}
