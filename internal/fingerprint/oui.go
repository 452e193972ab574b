package fingerprint

// ouiVendors maps the organizationally-unique first three octets of a MAC
// address to the manufacturer name. The table covers the vendors most
// commonly seen on home and small-office networks; anything missing here
// falls through to the optional external lookup.
var ouiVendors = map[string]string{
	// Apple
	"00:03:93": "Apple",
	"00:05:02": "Apple",
	"00:0A:27": "Apple",
	"00:0A:95": "Apple",
	"00:0D:93": "Apple",
	"00:11:24": "Apple",
	"00:14:51": "Apple",
	"00:16:CB": "Apple",
	"00:17:F2": "Apple",
	"00:19:E3": "Apple",
	"00:1B:63": "Apple",
	"00:1C:B3": "Apple",
	"00:1D:4F": "Apple",
	"00:1E:52": "Apple",
	"00:1E:C2": "Apple",
	"00:1F:5B": "Apple",
	"00:1F:F3": "Apple",
	"00:21:E9": "Apple",
	"00:22:41": "Apple",
	"00:23:12": "Apple",
	"00:23:32": "Apple",
	"00:23:6C": "Apple",
	"00:23:DF": "Apple",
	"00:24:36": "Apple",
	"00:25:00": "Apple",
	"00:25:4B": "Apple",
	"00:25:BC": "Apple",
	"00:26:08": "Apple",
	"00:26:4A": "Apple",
	"00:26:B0": "Apple",
	"00:26:BB": "Apple",
	// Samsung
	"00:00:F0": "Samsung",
	"00:02:78": "Samsung",
	"00:07:AB": "Samsung",
	"00:09:18": "Samsung",
	"00:0D:AE": "Samsung",
	"00:12:47": "Samsung",
	"00:12:FB": "Samsung",
	"00:13:77": "Samsung",
	"00:15:99": "Samsung",
	"00:15:B9": "Samsung",
	"00:16:32": "Samsung",
	"00:16:6B": "Samsung",
	"00:16:6C": "Samsung",
	"00:16:DB": "Samsung",
	"00:17:C9": "Samsung",
	"00:17:D5": "Samsung",
	"00:18:AF": "Samsung",
	// Google/Nest
	"54:60:09": "Google",
	"F4:F5:D8": "Google",
	"18:D6:C7": "Google Nest",
	"64:16:66": "Google Nest",
	// Amazon
	"00:FC:8B": "Amazon",
	"0C:47:C9": "Amazon",
	"34:D2:70": "Amazon",
	"40:B4:CD": "Amazon",
	"44:65:0D": "Amazon",
	"50:DC:E7": "Amazon",
	"68:37:E9": "Amazon",
	"68:54:FD": "Amazon",
	"74:C2:46": "Amazon",
	"84:D6:D0": "Amazon",
	"A0:02:DC": "Amazon",
	// Cisco/Linksys
	"00:00:0C": "Cisco",
	"00:01:42": "Cisco",
	"00:01:43": "Cisco",
	"00:01:63": "Cisco",
	"00:01:64": "Cisco",
	"00:01:96": "Cisco",
	"00:01:97": "Cisco",
	"00:01:C7": "Cisco",
	"00:01:C9": "Cisco",
	"00:02:16": "Cisco",
	"00:0C:41": "Linksys",
	"00:12:17": "Linksys",
	"00:14:BF": "Linksys",
	"00:16:B6": "Linksys",
	"00:18:39": "Linksys",
	"00:18:F8": "Linksys",
	"00:1A:70": "Linksys",
	"00:1C:10": "Linksys",
	"00:1D:7E": "Linksys",
	"00:1E:E5": "Linksys",
	// Netgear
	"00:09:5B": "Netgear",
	"00:0F:B5": "Netgear",
	"00:14:6C": "Netgear",
	"00:18:4D": "Netgear",
	"00:1B:2F": "Netgear",
	"00:1E:2A": "Netgear",
	"00:1F:33": "Netgear",
	"00:22:3F": "Netgear",
	"00:24:B2": "Netgear",
	"00:26:F2": "Netgear",
	// TP-Link
	"00:1D:0F": "TP-Link",
	"00:23:CD": "TP-Link",
	"00:27:19": "TP-Link",
	"14:CC:20": "TP-Link",
	"14:CF:92": "TP-Link",
	"18:A6:F7": "TP-Link",
	"1C:3B:F3": "TP-Link",
	"30:B5:C2": "TP-Link",
	"50:C7:BF": "TP-Link",
	"54:C8:0F": "TP-Link",
	// ASUS
	"00:0C:6E": "ASUS",
	"00:0E:A6": "ASUS",
	"00:11:2F": "ASUS",
	"00:13:D4": "ASUS",
	"00:15:F2": "ASUS",
	"00:17:31": "ASUS",
	"00:18:F3": "ASUS",
	"00:1A:92": "ASUS",
	"00:1B:FC": "ASUS",
	"00:1D:60": "ASUS",
	// Dell
	"00:06:5B": "Dell",
	"00:08:74": "Dell",
	"00:0B:DB": "Dell",
	"00:0D:56": "Dell",
	"00:0F:1F": "Dell",
	"00:11:43": "Dell",
	"00:12:3F": "Dell",
	"00:13:72": "Dell",
	"00:14:22": "Dell",
	"00:15:C5": "Dell",
	// HP
	"00:01:E6": "HP",
	"00:01:E7": "HP",
	"00:02:A5": "HP",
	"00:04:EA": "HP",
	"00:08:02": "HP",
	"00:08:83": "HP",
	"00:0A:57": "HP",
	"00:0B:CD": "HP",
	"00:0D:9D": "HP",
	"00:0E:7F": "HP",
	"00:0E:B3": "HP",
	"00:0F:20": "HP",
	"00:0F:61": "HP",
	"00:10:83": "HP",
	"00:10:E3": "HP",
	"00:11:0A": "HP",
	"00:11:85": "HP",
	"00:12:79": "HP",
	"00:13:21": "HP",
	"00:14:38": "HP",
	"00:14:C2": "HP",
	"00:15:60": "HP",
	// Intel
	"00:02:B3": "Intel",
	"00:03:47": "Intel",
	"00:04:23": "Intel",
	"00:07:E9": "Intel",
	"00:0C:F1": "Intel",
	"00:0E:0C": "Intel",
	"00:0E:35": "Intel",
	"00:11:11": "Intel",
	"00:12:F0": "Intel",
	"00:13:02": "Intel",
	"00:13:20": "Intel",
	"00:13:CE": "Intel",
	"00:13:E8": "Intel",
	"00:15:00": "Intel",
	"00:15:17": "Intel",
	"00:16:6F": "Intel",
	"00:16:76": "Intel",
	"00:16:EA": "Intel",
	"00:16:EB": "Intel",
	"00:17:35": "Intel",
	// Raspberry Pi Foundation
	"B8:27:EB": "Raspberry Pi",
	"DC:A6:32": "Raspberry Pi",
	"E4:5F:01": "Raspberry Pi",
	// Microsoft
	"00:03:FF": "Microsoft",
	"00:0D:3A": "Microsoft",
	"00:12:5A": "Microsoft",
	"00:15:5D": "Microsoft",
	"00:17:FA": "Microsoft",
	"00:1D:D8": "Microsoft",
	"00:22:48": "Microsoft",
	"00:25:AE": "Microsoft",
	"28:18:78": "Microsoft",
	"30:59:B7": "Microsoft",
	// Virtualization platforms, common in lab networks
	"00:50:56": "VMware",
	"00:0C:29": "VMware",
	"08:00:27": "VirtualBox",
	"00:16:3E": "Xen",
	"52:54:00": "QEMU",
}
